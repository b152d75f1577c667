package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dep2j/pkg/buildinfo"
	"github.com/matzehuels/dep2j/pkg/errors"
	"github.com/matzehuels/dep2j/pkg/pipeline"
	"github.com/matzehuels/dep2j/pkg/source"
)

// DefaultSourceName names a raw request body without a "name" parameter.
const DefaultSourceName = "request"

type handler struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	maxBody int64
	jobs    int
}

var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Current(),
	})
}

func (h *handler) convert(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	sources, err := readSources(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.runner.Execute(r.Context(), sources, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Debug("converted",
		"request_id", RequestIDFrom(r.Context()),
		"sources", result.Stats.Sources,
		"targets", result.Stats.Targets,
		"cached", result.CacheInfo.Hits)

	w.Header().Set("Content-Type", contentTypes[result.Format])
	w.Header().Set("X-Dep2j-Targets", strconv.Itoa(result.Stats.Targets))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Output)
	if result.Format == pipeline.FormatJSON {
		_, _ = w.Write([]byte{'\n'})
	}
}

func (h *handler) options(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Jobs:      h.jobs,
		Format:    q.Get("format"),
		Direction: q.Get("direction"),
		Logger:    h.logger,
	}
	for _, flag := range []struct {
		name string
		dst  *bool
	}{
		{"indent", &opts.Indent},
		{"detailed", &opts.Detailed},
		{"no_leaves", &opts.NoLeaves},
		{"refresh", &opts.Refresh},
	} {
		v := q.Get(flag.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "query parameter %s: not a boolean: %q", flag.name, v)
		}
		*flag.dst = b
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// readSources extracts the request's sources in order.
func readSources(r *http.Request) ([]source.Source, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipart(r)
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = DefaultSourceName
	}
	if err := errors.ValidateSourceName(name); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err)
	}
	return []source.Source{source.New(name, data)}, nil
}

func readMultipart(r *http.Request) ([]source.Source, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid multipart body")
	}

	var sources []source.Source
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bodyError(err)
		}
		name := part.FileName()
		if name == "" {
			part.Close()
			continue
		}
		if err := errors.ValidateSourceName(name); err != nil {
			part.Close()
			return nil, err
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, bodyError(err)
		}
		sources = append(sources, source.New(name, data))
	}

	if len(sources) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "multipart body contains no files")
	}
	return sources, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.Wrap(errors.ErrCodeTooLarge, err, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Source  string      `json:"source,omitempty"`
	Line    int         `json:"line,omitempty"`
	Offset  *int        `json:"offset,omitempty"`
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Code: errors.GetCode(err), Message: err.Error()}
	if resp.Code == "" {
		resp.Code = errors.ErrCodeInternal
	}

	var e *errors.Error
	if stderrors.As(err, &e) {
		resp.Message = e.Message
	}
	if pos, ok := errors.PositionOf(err); ok {
		resp.Source = pos.Source
		resp.Line = pos.Line
		resp.Offset = &pos.Offset
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "request_id", RequestIDFrom(r.Context()), "err", err)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeMalformedInput, errors.ErrCodeEncoding,
		errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
