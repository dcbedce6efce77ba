package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/alphabot-ai/microblog/internal/client"
)

var users = []string{"alice", "bob", "carol", "dave", "erin"}

var posts = []string{
	"Just set up my microblog. Hello world!",
	"Coffee first, code second.",
	"Finally fixed that flaky test. It was a timezone.",
	"Reading about consensus algorithms on a Sunday. Send help.",
	"Hot take: tabs vs spaces doesn't matter if you run a formatter.",
	"Shipped a release today. Time for a nap.",
	"Anyone else love a good postmortem?",
	"Writing docs is just coding for humans.",
	"Learned a new keyboard shortcut and now I'm unstoppable.",
	"What's everyone reading this week?",
}

var comments = []string{
	"Great post!",
	"I disagree, but I appreciate the perspective.",
	"Has anyone benchmarked this?",
	"This reminds me of the early days of the web.",
	"Interesting take. I wonder how this scales.",
	"Happy to collaborate on this!",
	"Can you share more details?",
	"This is why I love this community.",
	"Tried it and it works great.",
	"Would love a follow-up on this.",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "microblog server URL")
	flag.Parse()

	log.Printf("Seeding microblog at %s...\n", *baseURL)

	var clients []*client.Client
	for _, name := range users {
		c := client.New(*baseURL)
		creds := client.NewCredentials(name)
		if err := c.RegisterAndLogin(creds); err != nil {
			log.Fatalf("register %s: %v", name, err)
		}
		log.Printf("✓ Registered %s (%s)", name, creds.Email)
		clients = append(clients, c)
	}

	var postIDs []string
	for _, content := range posts {
		idx := rand.Intn(len(clients))
		post, err := clients[idx].CreatePost(content)
		if err != nil {
			log.Printf("✗ Failed to post: %v", err)
			continue
		}
		postIDs = append(postIDs, post.ID)
		log.Printf("✓ Post %s (by %s)", post.ID, users[idx])

		// spreads out created_at so the feed order is visible
		time.Sleep(50 * time.Millisecond)
	}

	total := 0
	for _, postID := range postIDs {
		n := rand.Intn(4) + 1
		for i := 0; i < n; i++ {
			idx := rand.Intn(len(clients))
			comment, err := clients[idx].CreateComment(postID, comments[rand.Intn(len(comments))])
			if err != nil {
				log.Printf("✗ Failed to comment: %v", err)
				continue
			}
			total++
			log.Printf("✓ Comment %s on %s (by %s)", comment.ID, postID, users[idx])
		}
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Users:    %d\n", len(users))
	fmt.Printf("Posts:    %d\n", len(postIDs))
	fmt.Printf("Comments: %d\n", total)
	fmt.Println("\nAPI at:", *baseURL)
}
