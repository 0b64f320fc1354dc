package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           pipeld API
// @version         1.0
// @description     HTTP API for streaming pipeline graph management and session supervision.
//
// @contact.name   pipeld maintainers
// @contact.url    https://github.com/your-org/pipeld
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
