package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/alphabot-ai/microblog/internal/client"
	"github.com/alphabot-ai/microblog/internal/model"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var urlFlag = &cli.StringFlag{
	Name:    "url",
	Usage:   "server URL (saved for later commands)",
	EnvVars: []string{"MICROBLOG_URL"},
}

func clientCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "register",
			Usage: "Create an account and log in",
			Flags: []cli.Flag{
				urlFlag,
				&cli.StringFlag{Name: "name", Usage: "username", Required: true},
				&cli.StringFlag{Name: "email", Required: true},
				&cli.StringFlag{Name: "password", EnvVars: []string{"MICROBLOG_PASSWORD"}, Required: true},
			},
			Action: cmdRegister,
		},
		{
			Name:  "login",
			Usage: "Log in and store the token",
			Flags: []cli.Flag{
				urlFlag,
				&cli.StringFlag{Name: "email", Usage: "defaults to the saved email"},
				&cli.StringFlag{Name: "password", EnvVars: []string{"MICROBLOG_PASSWORD"}, Required: true},
			},
			Action: cmdLogin,
		},
		{
			Name:   "whoami",
			Usage:  "Show the logged in user",
			Flags:  []cli.Flag{urlFlag},
			Action: cmdWhoami,
		},
		{
			Name:      "post",
			Usage:     "Publish a post",
			ArgsUsage: "<content>",
			Flags:     []cli.Flag{urlFlag},
			Action:    cmdPost,
		},
		{
			Name:  "posts",
			Usage: "List posts, newest first",
			Flags: []cli.Flag{
				urlFlag,
				&cli.StringFlag{Name: "user", Usage: "only posts by this user id"},
				&cli.BoolFlag{Name: "mine", Usage: "only my posts"},
			},
			Action: cmdPosts,
		},
		{
			Name:      "comment",
			Usage:     "Comment on a post",
			ArgsUsage: "<post-id> <content>",
			Flags:     []cli.Flag{urlFlag},
			Action:    cmdComment,
		},
		{
			Name:      "comments",
			Usage:     "List comments on a post",
			ArgsUsage: "<post-id>",
			Flags:     []cli.Flag{urlFlag},
			Action:    cmdComments,
		},
		{
			Name:      "delete-post",
			Usage:     "Delete one of your posts and its comments",
			ArgsUsage: "<post-id>",
			Flags:     []cli.Flag{urlFlag},
			Action:    cmdDeletePost,
		},
	}
}

// session loads the saved config, applies --url and returns a client
// carrying the saved token.
func session(c *cli.Context) (*CLIConfig, *client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, nil, err
	}
	if u := c.String("url"); u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	cl := client.New(cfg.BaseURL)
	if cfg.loggedIn(time.Now()) {
		cl.Token = cfg.Token
		cl.TokenExp = cfg.TokenExpires
		cl.UserID = cfg.UserID
	}
	return cfg, cl, nil
}

func authedSession(c *cli.Context) (*CLIConfig, *client.Client, error) {
	cfg, cl, err := session(c)
	if err != nil {
		return nil, nil, err
	}
	if !cl.IsAuthenticated() {
		return nil, nil, errors.New("not logged in (run: microblog login --password ...)")
	}
	return cfg, cl, nil
}

func remember(cfg *CLIConfig, cl *client.Client, user *model.User) error {
	cfg.Username = user.Username
	cfg.Email = user.Email
	cfg.UserID = user.ID
	cfg.Token = cl.Token
	cfg.TokenExpires = cl.TokenExp
	return saveCLIConfig(cfg)
}

func cmdRegister(c *cli.Context) error {
	cfg, cl, err := session(c)
	if err != nil {
		return err
	}
	creds := client.Credentials{
		Username: c.String("name"),
		Email:    c.String("email"),
		Password: c.String("password"),
	}
	if _, err := cl.Register(creds); err != nil {
		return err
	}
	user, err := cl.Login(creds.Email, creds.Password)
	if err != nil {
		return err
	}
	if err := remember(cfg, cl, user); err != nil {
		return err
	}
	fmt.Printf("Registered %s (%s)\n", user.Username, user.ID)
	return nil
}

func cmdLogin(c *cli.Context) error {
	cfg, cl, err := session(c)
	if err != nil {
		return err
	}
	email := c.String("email")
	if email == "" {
		email = cfg.Email
	}
	if email == "" {
		return errors.New("--email is required")
	}
	user, err := cl.Login(email, c.String("password"))
	if err != nil {
		return err
	}
	if err := remember(cfg, cl, user); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s, token expires %s\n", user.Username, cl.TokenExp.Local().Format(time.RFC1123))
	return nil
}

func cmdWhoami(c *cli.Context) error {
	_, cl, err := authedSession(c)
	if err != nil {
		return err
	}
	user, err := cl.Me()
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\nid: %s\njoined: %s\n", user.Username, user.Email, user.ID, user.CreatedAt.Format(time.RFC3339))
	return nil
}

func cmdPost(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("usage: microblog post <content>")
	}
	_, cl, err := authedSession(c)
	if err != nil {
		return err
	}
	post, err := cl.CreatePost(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Printf("Posted %s\n", post.ID)
	return nil
}

func cmdPosts(c *cli.Context) error {
	cfg, cl, err := authedSession(c)
	if err != nil {
		return err
	}
	var posts []model.Post
	switch {
	case c.Bool("mine"):
		posts, err = cl.ListUserPosts(cfg.UserID)
	case c.String("user") != "":
		posts, err = cl.ListUserPosts(c.String("user"))
	default:
		posts, err = cl.ListPosts()
	}
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("No posts yet.")
		return nil
	}
	for _, p := range posts {
		fmt.Printf("%s  %s  by %s\n    %s\n", p.ID, p.CreatedAt.Local().Format("2006-01-02 15:04"), p.AuthorID, p.Content)
	}
	return nil
}

func cmdComment(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("usage: microblog comment <post-id> <content>")
	}
	_, cl, err := authedSession(c)
	if err != nil {
		return err
	}
	comment, err := cl.CreateComment(c.Args().First(), strings.Join(c.Args().Tail(), " "))
	if err != nil {
		return err
	}
	fmt.Printf("Commented %s on %s\n", comment.ID, comment.PostID)
	return nil
}

func cmdComments(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: microblog comments <post-id>")
	}
	_, cl, err := authedSession(c)
	if err != nil {
		return err
	}
	comments, err := cl.ListComments(c.Args().First())
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Println("No comments.")
		return nil
	}
	for _, cm := range comments {
		fmt.Printf("%s  by %s: %s\n", cm.ID, cm.AuthorID, cm.Content)
	}
	return nil
}

func cmdDeletePost(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: microblog delete-post <post-id>")
	}
	_, cl, err := authedSession(c)
	if err != nil {
		return err
	}
	if err := cl.DeletePost(c.Args().First()); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}
