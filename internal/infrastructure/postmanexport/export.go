// Package postmanexport implements application.PostmanExporter: rendering
// a completed TestRunResult as a Postman Collection v2.1 document, so a
// run's requests can be replayed outside testcascade.
package postmanexport

import (
	"bytes"
	"fmt"

	postman "github.com/rbretecher/go-postman-collection"

	"github.com/devrickard/testcascade/internal/domain/models"
)

// Exporter implements application.PostmanExporter.
type Exporter struct{}

// NewExporter creates a Postman Exporter.
func NewExporter() *Exporter { return &Exporter{} }

// Export renders run's requests (skipping any result that never reached
// the request-building stage) as a Postman Collection v2.1 document.
func (e *Exporter) Export(run *models.TestRunResult) ([]byte, error) {
	collection := postman.CreateCollection("testcascade run "+run.RunID, "Exported from a testcascade run against "+run.BaseURL)

	for _, result := range run.Results {
		if result.Request == nil {
			continue
		}

		req := postman.Request{
			URL:    &postman.URL{Raw: result.Request.URL},
			Method: postman.Method(result.Request.Method),
		}

		for name, value := range result.Request.Headers {
			req.Header = append(req.Header, &postman.Header{Key: name, Value: value})
		}

		if result.Request.BodyPreview != "" {
			req.Body = &postman.Body{
				Mode: "raw",
				Raw:  result.Request.BodyPreview,
			}
		}

		item := postman.CreateItem(postman.Item{
			Name:    result.Name,
			Request: &req,
		})

		collection.AddItem(item)
	}

	var buf bytes.Buffer
	if err := collection.Write(&buf, postman.V210); err != nil {
		return nil, fmt.Errorf("failed to render postman collection: %w", err)
	}

	return buf.Bytes(), nil
}
