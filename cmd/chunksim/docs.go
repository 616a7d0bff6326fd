package main

// General API documentation for swaggo. Run `swag init -g cmd/chunksim/docs.go` to regenerate docs.
//
// @title           chunksim API
// @version         1.0
// @description     Stateless layer-budgeted compute service. Clients carry all session state.
//
// @contact.name   chunkgen maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
