package main

// General API documentation. The served document lives in
// internal/httpapi/openapi.json and is mounted when built with -tags=swagger.
//
// @title           agentcore API
// @version         1.0
// @description     HTTP API for local and remote model execution, artifacts and credentials.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
