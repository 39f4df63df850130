// Package main Clubhouse Media API
//
//	@title			Clubhouse Media API
//	@version		1.0
//	@description	Pins member content to IPFS and serves content-addressed gateway URLs
//
//	@contact.name	Clubhouse Engineering
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT token (format: Bearer <token>)
package main
