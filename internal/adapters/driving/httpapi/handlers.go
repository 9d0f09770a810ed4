package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/askme/internal/adapters/driven/faqfile"
	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/services"
)

type createTenantRequest struct {
	Name     string                `json:"name"`
	Settings domain.TenantSettings `json:"settings,omitempty"`
}

type createTenantResponse struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	APIKey   string `json:"api_key"`
}

type faqResponse struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// askRequest is the body of POST /api/ask and of each WebSocket message.
type askRequest struct {
	Query   string               `json:"query"`
	TopK    int                  `json:"top_k,omitempty"`
	Mode    domain.DeliveryMode  `json:"mode,omitempty"`
	History []domain.ChatMessage `json:"history,omitempty"`
	Stream  bool                 `json:"stream,omitempty"`
}

type askResponse struct {
	Answer  string                `json:"answer"`
	Mode    domain.DeliveryMode   `json:"mode"`
	Results []domain.SearchResult `json:"results"`
}

type statusResponse struct {
	Status  string              `json:"status"`
	Mode    domain.DeliveryMode `json:"mode"`
	Model   string              `json:"model,omitempty"`
	Tenants int                 `json:"tenants"`
	Cache   domain.CacheStats   `json:"cache"`
}

func (s *Server) handleLanding(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": ServiceName, "version": s.version})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Mode:    s.mode,
		Model:   s.model,
		Tenants: len(tenants),
		Cache:   s.retrieval.CacheStats(),
	})
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tenant, err := s.tenants.Create(r.Context(), req.Name, req.Settings)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTenantResponse{
		TenantID: tenant.ID,
		Name:     tenant.Name,
		APIKey:   tenant.APIKey,
	})
}

func (s *Server) handleUploadFAQs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	faqs, err := readUpload(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tenant := tenantFrom(r.Context())
	n, err := s.faqs.StoreFAQs(r.Context(), tenant.ID, faqs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"stored": n})
}

// readUpload accepts a multipart "file" field, a body in the format named
// by ?format=, or a JSON body.
func readUpload(r *http.Request) ([]domain.FAQInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: multipart field \"file\": %w", domain.ErrInvalidInput, err)
		}
		defer file.Close()

		format, err := uploadFormat(r, header.Filename)
		if err != nil {
			return nil, err
		}
		return faqfile.Parse(file, format)
	}

	format, err := uploadFormat(r, "")
	if err != nil {
		return nil, err
	}
	return faqfile.Parse(r.Body, format)
}

func uploadFormat(r *http.Request, filename string) (faqfile.Format, error) {
	if name := r.URL.Query().Get("format"); name != "" {
		return faqfile.ParseFormat(name)
	}
	if filename != "" {
		return faqfile.FormatFromPath(filename)
	}
	return faqfile.FormatJSON, nil
}

func (s *Server) handleListFAQs(w http.ResponseWriter, r *http.Request) {
	faqs, err := s.faqs.ListFAQs(r.Context(), tenantFrom(r.Context()).ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]faqResponse, len(faqs))
	for i, f := range faqs {
		out[i] = faqResponse{ID: f.ID, Question: f.Question, Answer: f.Answer, CreatedAt: f.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.ask.Ask(r.Context(), req.toDomain(tenantFrom(r.Context()).ID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if req.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		streamEvents(w, resp.Chunks)
		return
	}

	answer, err := services.Collect(resp.Chunks)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer, Mode: resp.Mode, Results: resp.Results})
}

func (req askRequest) toDomain(tenantID string) domain.AskRequest {
	return domain.AskRequest{
		TenantID: tenantID,
		Query:    req.Query,
		TopK:     req.TopK,
		Mode:     req.Mode,
		History:  req.History,
	}
}

// streamEvents writes each chunk as a server-sent event. A failed
// delivery ends with an "error" event.
func streamEvents(w http.ResponseWriter, chunks <-chan domain.Chunk) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for c := range chunks {
		event := ""
		if c.Err != nil {
			event = "error"
		}
		if err := writeEvent(w, event, c.Text); err != nil {
			// Client went away; drain so the producer can finish.
			for range chunks {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event, data string) error {
	var sb strings.Builder
	if event != "" {
		sb.WriteString("event: " + event + "\n")
	}
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString("data: " + line + "\n")
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// isDisconnect reports errors caused by the client closing the connection.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
