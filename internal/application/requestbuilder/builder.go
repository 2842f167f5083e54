// Package requestbuilder composes the outgoing *http.Request for a test
// case: variable substitution over URL, headers and body, path and query
// parameters, authentication, and form/multipart encoding.
package requestbuilder

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/devrickard/testcascade/internal/application/substitutor"
	"github.com/devrickard/testcascade/internal/domain/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyPreview = 2048

// Service implements application.RequestBuilder.
type Service struct {
	substitutor *substitutor.Service
}

// NewService creates an HTTP Request Builder.
func NewService(sub *substitutor.Service) *Service {
	if sub == nil {
		sub = substitutor.NewService()
	}
	return &Service{substitutor: sub}
}

// Build composes the outgoing *http.Request and a RequestEcho describing
// what was actually sent, applying auth before per-test headers and
// inferring content type from the body shape present.
func (s *Service) Build(
	ctx context.Context,
	baseURL string,
	tc models.TestCase,
	variables map[string]string,
	globalHeaders map[string]string,
) (*http.Request, *models.RequestEcho, error) {
	fullURL, err := s.buildURL(baseURL, tc.Request, variables)
	if err != nil {
		return nil, nil, err
	}

	contentType := effectiveContentType(tc.Request)

	var bodyBytes []byte
	if isBodyMethod(tc.Request.Method) {
		bodyBytes, contentType, err = s.buildBody(tc.Request, variables, contentType)
		if err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, string(tc.Request.Method), fullURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}

	headers := mergeHeaders(globalHeaders, tc.Request.Headers, s.substitutor, variables)

	if err := s.applyAuth(req, &fullURL, tc.Authentication, variables, headers); err != nil {
		return nil, nil, err
	}

	for name, value := range headers {
		if strings.EqualFold(name, "Content-Type") {
			continue
		}
		req.Header.Set(name, value)
	}
	if isBodyMethod(tc.Request.Method) && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	echoHeaders := make(map[string]string, len(headers))
	for k, v := range headers {
		echoHeaders[k] = v
	}

	preview := string(bodyBytes)
	if len(preview) > maxBodyPreview {
		preview = preview[:maxBodyPreview]
	}

	echo := &models.RequestEcho{
		Method:      string(tc.Request.Method),
		URL:         fullURL,
		Headers:     echoHeaders,
		BodyPreview: preview,
	}

	return req, echo, nil
}

func isBodyMethod(m models.Method) bool {
	return m == models.MethodPost || m == models.MethodPut || m == models.MethodPatch
}

func (s *Service) buildURL(baseURL string, req models.Request, variables map[string]string) (string, error) {
	base := baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	path := s.substitutor.Expand(req.Path, variables)

	for name, tmpl := range req.PathParameters {
		value := s.substitutor.Expand(tmpl, variables)
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	path = strings.TrimPrefix(path, "/")

	full := base + path

	if len(req.QueryParameters) > 0 {
		if _, err := url.Parse(full); err != nil {
			return "", fmt.Errorf("invalid path: %w", err)
		}
		query := s.encodeQuery(req.QueryParameters, variables)
		if strings.Contains(full, "?") {
			full += "&" + query
		} else {
			full += "?" + query
		}
	}

	return full, nil
}

// encodeQuery renders QueryParameters as a query string in declared
// order. url.Values.Encode always sorts by key, which would discard
// that order.
func (s *Service) encodeQuery(params models.QueryParameters, variables map[string]string) string {
	var buf strings.Builder
	for i, qp := range params {
		if i > 0 {
			buf.WriteByte('&')
		}
		value := s.substitutor.Expand(qp.Template, variables)
		buf.WriteString(url.QueryEscape(qp.Name))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(value))
	}
	return buf.String()
}

func mergeHeaders(
	global map[string]string,
	perTest map[string]string,
	sub *substitutor.Service,
	variables map[string]string,
) map[string]string {
	result := make(map[string]string, len(global)+len(perTest))
	lookup := make(map[string]string, len(global)+len(perTest))

	for name, value := range global {
		key := strings.ToLower(name)
		result[name] = sub.Expand(value, variables)
		lookup[key] = name
	}
	for name, tmpl := range perTest {
		key := strings.ToLower(name)
		if existing, ok := lookup[key]; ok {
			delete(result, existing)
		}
		result[name] = sub.Expand(tmpl, variables)
		lookup[key] = name
	}

	return result
}

func effectiveContentType(req models.Request) string {
	if req.ContentType != "" {
		return req.ContentType
	}
	if len(req.FileParameters) > 0 {
		return "multipart/form-data"
	}
	if len(req.FormParameters) > 0 {
		return "application/x-www-form-urlencoded"
	}
	return "application/json"
}

func (s *Service) buildBody(req models.Request, variables map[string]string, contentType string) ([]byte, string, error) {
	if len(req.FileParameters) > 0 && strings.HasPrefix(contentType, "multipart/form-data") {
		return s.buildMultipart(req, variables)
	}

	if len(req.FormParameters) > 0 && contentType == "application/x-www-form-urlencoded" {
		values := url.Values{}
		for name, tmpl := range req.FormParameters {
			values.Set(name, s.substitutor.Expand(tmpl, variables))
		}
		return []byte(values.Encode()), contentType, nil
	}

	switch body := req.Body.(type) {
	case nil:
		return nil, contentType, nil
	case string:
		return []byte(s.substitutor.Expand(body, variables)), contentType, nil
	default:
		serialized, err := json.Marshal(body)
		if err != nil {
			return nil, contentType, fmt.Errorf("failed to serialize body: %w", err)
		}
		return []byte(s.substitutor.Expand(string(serialized), variables)), contentType, nil
	}
}

func (s *Service) buildMultipart(req models.Request, variables map[string]string) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for _, file := range req.FileParameters {
		content, err := s.resolveFileContent(file, variables)
		if err != nil {
			return nil, "", err
		}

		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create multipart field %q: %w", file.FieldName, err)
		}
		if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
			return nil, "", fmt.Errorf("failed to write multipart field %q: %w", file.FieldName, err)
		}
	}

	for name, tmpl := range req.FormParameters {
		if err := writer.WriteField(name, s.substitutor.Expand(tmpl, variables)); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %q: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (s *Service) resolveFileContent(file models.FileParameter, variables map[string]string) ([]byte, error) {
	if file.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(file.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content for field %q: %w", file.FieldName, err)
		}
		return decoded, nil
	}

	path := s.substitutor.Expand(file.FilePath, variables)
	if path == "" {
		return nil, fmt.Errorf("file parameter %q has neither inline content nor a file path", file.FieldName)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file %q: %w", path, err)
	}
	return content, nil
}

// applyAuth mutates req and, for ApiKey/Query, the URL query string,
// before per-test headers are applied so tests can still override it.
func (s *Service) applyAuth(
	req *http.Request,
	fullURL *string,
	auth *models.Authentication,
	variables map[string]string,
	_ map[string]string,
) error {
	if auth == nil || auth.Type == models.AuthNone || auth.Type == "" {
		return nil
	}

	switch auth.Type {
	case models.AuthBasic:
		user := s.substitutor.Expand(auth.Username, variables)
		pass := s.substitutor.Expand(auth.Password, variables)
		req.SetBasicAuth(user, pass)

	case models.AuthBearer:
		token := s.substitutor.Expand(auth.Token, variables)
		req.Header.Set("Authorization", "Bearer "+token)

	case models.AuthAPIKey:
		value := s.substitutor.Expand(auth.Value, variables)
		switch auth.Location {
		case models.AuthLocationQuery:
			parsed, err := url.Parse(*fullURL)
			if err != nil {
				return fmt.Errorf("invalid URL for ApiKey auth: %w", err)
			}
			q := parsed.Query()
			q.Set(auth.HeaderName, value)
			parsed.RawQuery = q.Encode()
			*fullURL = parsed.String()
			req.URL = parsed
		default:
			req.Header.Set(auth.HeaderName, value)
		}

	default:
		return fmt.Errorf("unsupported authentication type: %s", auth.Type)
	}

	return nil
}
