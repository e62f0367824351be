package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spektr-org/fertdash/engine"
	"github.com/spektr-org/fertdash/loader"
)

//go:embed templates/page.html
var templateFS embed.FS

// Server is the dashboard's HTTP front end. Every request is one
// interaction: read the selection from the query string, render, respond.
//
//	GET  /                     page with filters, charts, tables
//	GET  /api/view             engine.Result as JSON
//	GET  /api/options          distinct values per filter dimension
//	POST /api/reload           drop the cached dataset and reload
//	GET  /charts/{name}.svg    one chart (npk, cost, efficiency)
//	GET  /healthz              load status
//	GET  /metrics              Prometheus
type Server struct {
	session *Session
	metrics *Metrics
	logger  *zap.Logger
	page    *template.Template
	mux     *http.ServeMux
}

// NewServer wires the routes for session. A nil metrics creates a private
// registry.
func NewServer(session *Session, metrics *Metrics, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	page, err := template.New("page.html").Funcs(templateFuncs(session.opts.Currency)).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		session: session,
		metrics: metrics,
		logger:  logger.Named("http"),
		page:    page,
		mux:     http.NewServeMux(),
	}
	s.handle("GET /{$}", "page", s.handlePage)
	s.handle("GET /api/view", "view", s.handleView)
	s.handle("GET /api/options", "options", s.handleOptions)
	s.handle("POST /api/reload", "reload", s.handleReload)
	s.handle("GET /charts/{file}", "chart", s.handleChart)
	s.handle("GET /healthz", "healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())
	return s, nil
}

func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.metrics.Instrument(route, h))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ----------------------------------------------------------------------------
// GET /
// ----------------------------------------------------------------------------

type pageData struct {
	Title    string
	Result   *engine.Result
	Dataset  *loader.Dataset
	Controls []control
	Charts   []chartRef
	Error    *errorPanel
}

type control struct {
	Key     string
	Label   string
	Size    int
	Options []option
}

type option struct {
	Value    string
	Selected bool
}

type chartRef struct {
	Title string
	Src   string
}

type errorPanel struct {
	Message  string
	Path     string
	Attempts []string
	Missing  []string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sel := engine.SelectionFromQuery(r.URL.Query())
	data := pageData{Title: s.title()}
	status := http.StatusOK

	view, err := s.session.Render(r.Context(), sel)
	if err != nil {
		status = s.statusFor(err)
		data.Error = newErrorPanel(err, s.session.Source())
		s.logger.Warn("page render failed", zap.Error(err))
	} else {
		data.Result = view.Result
		data.Dataset = view.Dataset
		data.Title = view.Result.Title
		data.Controls = controls(view.Result)
		if !view.Result.Empty {
			data.Charts = chartRefs(view.Result, sel)
		}
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.Error("template failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) title() string {
	if s.session.opts.Title != "" {
		return s.session.opts.Title
	}
	return engine.DefaultTitle
}

func controls(res *engine.Result) []control {
	out := make([]control, 0, len(engine.FilterDimensions))
	for _, dim := range engine.FilterDimensions {
		selected := make(map[string]bool)
		for _, v := range res.Selection.Values(dim) {
			selected[strings.ToLower(strings.TrimSpace(v))] = true
		}
		c := control{Key: dim, Label: engine.LabelForDimension(dim)}
		for _, v := range res.Options[dim] {
			c.Options = append(c.Options, option{Value: v, Selected: selected[strings.ToLower(v)]})
		}
		c.Size = min(max(len(c.Options), 2), 8)
		out = append(out, c)
	}
	return out
}

func chartRefs(res *engine.Result, sel engine.Selection) []chartRef {
	query := sel.Query().Encode()
	var refs []chartRef
	for _, name := range ChartNames {
		cfg, _ := pickChart(res, name)
		if cfg == nil {
			continue
		}
		src := "/charts/" + name + ".svg"
		if query != "" {
			src += "?" + query
		}
		refs = append(refs, chartRef{Title: cfg.Title, Src: src})
	}
	return refs
}

// ----------------------------------------------------------------------------
// GET /api/view, GET /api/options, POST /api/reload
// ----------------------------------------------------------------------------

type viewResponse struct {
	*engine.Result
	Dataset *loader.Dataset `json:"dataset"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.session.Render(r.Context(), engine.SelectionFromQuery(r.URL.Query()))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{Result: view.Result, Dataset: view.Dataset})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ds, err := s.session.Dataset(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.FilterOptions(ds.View))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.session.Invalidate()
	ds, err := s.session.Dataset(r.Context())
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	s.logger.Info("dataset reloaded on request", zap.String("dataset", ds.ID), zap.Int("rows", ds.Len()))
	writeJSON(w, http.StatusOK, ds)
}

// ----------------------------------------------------------------------------
// GET /charts/{name}.svg
// ----------------------------------------------------------------------------

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}
	size := s.session.ChartSize()

	view, err := s.session.Render(r.Context(), engine.SelectionFromQuery(r.URL.Query()))
	if err != nil {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(s.statusFor(err))
		errorSVG(w, size, "Data unavailable")
		return
	}
	cfg, known := pickChart(view.Result, name)
	if !known {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := RenderSVG(&buf, cfg, size); err != nil {
		msg := "Chart unavailable"
		if errors.Is(err, ErrNoChart) {
			msg = "Nothing to chart for this selection"
		} else {
			s.logger.Warn("chart render failed", zap.String("chart", name), zap.Error(err))
		}
		buf.Reset()
		errorSVG(&buf, size, msg)
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// ----------------------------------------------------------------------------
// GET /healthz
// ----------------------------------------------------------------------------

type healthResponse struct {
	Status  string `json:"status"`
	Source  string `json:"source"`
	Dataset string `json:"dataset,omitempty"`
	Rows    int    `json:"rows"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Source: s.session.Source()}
	ds, err := s.session.Dataset(r.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Dataset = ds.ID
	resp.Rows = ds.Len()
	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

type errorResponse struct {
	Error    string   `json:"error"`
	Op       string   `json:"op,omitempty"`
	Path     string   `json:"path,omitempty"`
	Attempts []string `json:"attempts,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var lerr *loader.DataLoadError
	if errors.As(err, &lerr) {
		resp.Op = lerr.Op
		resp.Path = lerr.Path
		resp.Attempts = attemptNames(lerr.Attempts)
		resp.Missing = lerr.Missing
	}
	writeJSON(w, s.statusFor(err), resp)
}

// statusFor maps a render failure to an HTTP status. A bad data file is
// the server's problem, not the client's.
func (s *Server) statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, new(*loader.DataLoadError)):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func newErrorPanel(err error, path string) *errorPanel {
	p := &errorPanel{Message: err.Error(), Path: path}
	var lerr *loader.DataLoadError
	if errors.As(err, &lerr) {
		p.Attempts = attemptNames(lerr.Attempts)
		p.Missing = lerr.Missing
	}
	return p
}

func attemptNames(attempts []loader.Attempt) []string {
	if len(attempts) == 0 {
		return nil
	}
	names := make([]string, len(attempts))
	for i, a := range attempts {
		names[i] = a.Encoding
	}
	return names
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func templateFuncs(currency string) template.FuncMap {
	if currency == "" {
		currency = "€"
	}
	return template.FuncMap{
		"join":   strings.Join,
		"money":  func(v float64) string { return engine.FormatCurrency(v, currency) },
		"number": engine.FormatNumber,
		"moneyPtr": func(v *float64) string {
			if v == nil {
				return "n/a"
			}
			return engine.FormatCurrency(*v, currency)
		},
	}
}
