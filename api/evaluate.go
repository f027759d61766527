package api

import (
	"text2phenotype.com/anneval/classifier"
	"text2phenotype.com/anneval/corpus"
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/types"
	"text2phenotype.com/anneval/utils"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 4 << 20

// EvaluateRequest scores one document. Without mentions the text is sent to
// the classifier. Mentions are {"keyword", "tag"} records filtered like a
// classifier reply; Options is a JSON merge patch applied onto the server's
// base configuration.
type EvaluateRequest struct {
	Name     string              `json:"name"`
	Text     string              `json:"text"`
	Gold     []corpus.GoldRecord `json:"gold"`
	Mentions []json.RawMessage   `json:"mentions"`
	Options  json.RawMessage     `json:"options"`
}

func (server *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	requestLogger := makeRequestLogger(r)

	if r.Method != http.MethodPost {
		requestLogger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, requestLogger, http.StatusBadRequest, fmt.Errorf("could not read request body: %w", err))
		return
	}
	var request EvaluateRequest
	if err := json.Unmarshal(body, &request); err != nil {
		writeError(w, requestLogger, http.StatusBadRequest, fmt.Errorf("could not decode request: %w", err))
		return
	}
	cfg, err := server.configuration(request.Options)
	if err != nil {
		writeError(w, requestLogger, http.StatusBadRequest, err)
		return
	}
	evaluator, err := pipeline.NewEvaluator(cfg)
	if err != nil {
		writeError(w, requestLogger, http.StatusBadRequest, err)
		return
	}

	if request.Name == "" {
		request.Name = "request"
	}
	requestLogger.Info().
		Str("tid", request.Name).
		Str("condition", evaluator.Configuration().Name).
		Bool("classify", request.Mentions == nil).
		Msg("Starting evaluation for request from API")

	result, err := server.evaluate(r, evaluator, request)
	if err != nil {
		writeError(w, requestLogger, http.StatusInternalServerError, err)
		return
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		requestLogger.Err(err).Msg("Failed to write response")
		return
	}
	requestLogger.Info().Int("status", http.StatusOK).Msg("Finished processing request")
}

func (server *Server) evaluate(r *http.Request, evaluator *pipeline.Evaluator, request EvaluateRequest) (result pipeline.DocumentResult, err error) {
	defer utils.RecoverWithError(&err)
	doc := corpus.NewDocument(request.Name, request.Text, request.Gold)

	var classified classifier.ParseResult
	if request.Mentions != nil {
		classified = classifier.ParseRecords(request.Mentions)
	} else {
		classified = server.classifier.Classify(r.Context(), evaluator.ClassifierParams(), request.Text)
	}
	return evaluator.Evaluate(doc, classified), nil
}

// configuration applies options onto the base configuration. The condition
// name is derived again unless the patch sets one.
func (server *Server) configuration(options json.RawMessage) (types.Configuration, error) {
	cfg := server.base
	if len(options) == 0 || string(options) == "null" {
		return cfg.WithDefaults(), nil
	}
	cfg.Name = ""
	base, err := json.Marshal(cfg)
	if err != nil {
		return cfg, err
	}
	patched, err := jsonpatch.MergePatch(base, options)
	if err != nil {
		return cfg, fmt.Errorf("could not apply options: %w", err)
	}
	var result types.Configuration
	if err := json.Unmarshal(patched, &result); err != nil {
		return cfg, fmt.Errorf("could not decode patched configuration: %w", err)
	}
	return result.WithDefaults(), nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, requestLogger zerolog.Logger, status int, err error) {
	requestLogger.Err(err).Int("status", status).Msg("Request failed")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}
