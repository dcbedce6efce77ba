// Package httpapp provides the HTTP server for microblog.
//
//	@title						Microblog API
//	@version					1.0
//	@description				Users, posts and comments. Only the author of a post or comment may edit or delete it.
//	@description
//	@description				## Authentication Flow
//	@description
//	@description				```bash
//	@description				curl -X POST /api/auth/register -d '{"username":"alice","email":"alice@example.com","password":"..."}'
//	@description				curl -X POST /api/auth/login -d '{"email":"alice@example.com","password":"..."}'
//	@description				# Returns: {"token": "TOKEN", "expires_at": "...", "user": {...}}
//	@description				curl /api/posts -H "Authorization: Bearer TOKEN"
//	@description				```
//	@description
//	@description				Deleting a post also deletes its comments.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /api/auth/login
//
//	@tag.name					Authentication
//	@tag.description			Register and log in with email and password.
//
//	@tag.name					Users
//	@tag.description			Profiles. Each user may only change or delete their own account.
//
//	@tag.name					Posts
//	@tag.description			Short text posts, listed newest first.
//
//	@tag.name					Comments
//	@tag.description			Comments on posts.
//
//	@tag.name					Meta
//	@tag.description			Health and build information.
package httpapp
