// Package docs Customer portal API documentation
package docs

// Swagger documentation info
// @title Customer Portal API
// @version 1.0
// @description Identity, profile and ID document verification for insurance customers

// @host localhost:8001
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey TokenAuth
// @in header
// @name Authorization
// @description Type "Token" followed by a space and the session token.

// @tag.name users
// @tag.description Registration, login and profiles
// @tag.name verification
// @tag.description Email verification and password reset
// @tag.name id-documents
// @tag.description ID document submission and review
