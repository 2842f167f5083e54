package models

// EndpointDescriptor is the thin shape the /upload ingress interface
// returns for each operation discovered in an uploaded OpenAPI/Swagger
// document: "<METHOD> <path>".
type EndpointDescriptor struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// String renders the descriptor in the "<METHOD> <path>" form.
func (e EndpointDescriptor) String() string {
	return e.Method + " " + e.Path
}

// UploadResult is returned by the /upload ingress endpoint. StoredPath
// is the randomized on-disk location the uploaded document was saved
// under; callers pass it back as swaggerFilePath to /generate-tests.
type UploadResult struct {
	StoredPath string               `json:"swaggerFilePath"`
	Endpoints  []EndpointDescriptor `json:"endpoints"`
}
