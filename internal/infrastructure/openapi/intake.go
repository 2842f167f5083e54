// Package openapi implements the thin OpenAPI/Swagger intake used by the
// upload pathway: list an uploaded document's operations as endpoint
// descriptors, without attempting to generate test cases itself.
package openapi

import (
	"context"
	"fmt"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/devrickard/testcascade/internal/domain/models"
)

// Service implements application.OpenAPIIntake.
type Service struct{}

// NewService creates an OpenAPI intake Service.
func NewService() *Service { return &Service{} }

// Endpoints parses data as an OpenAPI 3.x document and lists its
// operations. Swagger 2.0 documents are not supported.
func (s *Service) Endpoints(_ context.Context, data []byte) ([]models.EndpointDescriptor, error) {
	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	model, err := document.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI v3 model: %w", err)
	}

	var descriptors []models.EndpointDescriptor

	if model.Model.Paths == nil || model.Model.Paths.PathItems == nil {
		return descriptors, nil
	}

	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()

		ops := map[string]*v3.Operation{
			"GET":     item.Get,
			"POST":    item.Post,
			"PUT":     item.Put,
			"DELETE":  item.Delete,
			"PATCH":   item.Patch,
			"HEAD":    item.Head,
			"OPTIONS": item.Options,
		}

		for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"} {
			if ops[method] == nil {
				continue
			}
			descriptors = append(descriptors, models.EndpointDescriptor{
				Method: method,
				Path:   path,
			})
		}
	}

	return descriptors, nil
}
