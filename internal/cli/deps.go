package cli

import (
	"github.com/devrickard/testcascade/internal/application"
	"github.com/devrickard/testcascade/internal/infrastructure/reporter"
)

// Dependencies carries the services main wires up, so command
// constructors stay free of concrete infrastructure types.
type Dependencies struct {
	Config      application.ConfigProvider
	Coordinator application.Coordinator
	Extractor   application.TestCaseExtractor
	Generation  application.GenerationClient
	OpenAPI     application.OpenAPIIntake
	Postman     application.PostmanExporter
	Reporter    *reporter.Service
	UploadDir   string
}
