// Package middleware implements the access pipeline every protected request
// passes: app key, then bearer token, then league scope. Stages run in the
// order given and the first rejection ends the request.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// Rejection stops a request at a stage with a status and a client message.
type Rejection struct {
	Stage   string
	Status  int
	Message string
}

// Stage inspects a request. It returns the request to hand to the next stage,
// usually with more context attached, or a rejection.
type Stage func(r *http.Request) (*http.Request, *Rejection)

// RejectionObserver is told about every rejection, e.g. to count it.
type RejectionObserver func(stage string, status int)

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages  []Stage
	observe RejectionObserver
}

// NewPipeline creates a pipeline running stages in order. observe may be nil.
func NewPipeline(observe RejectionObserver, stages ...Stage) Pipeline {
	return Pipeline{stages: append([]Stage(nil), stages...), observe: observe}
}

// Then returns a new pipeline that runs p's stages followed by stages.
func (p Pipeline) Then(stages ...Stage) Pipeline {
	all := make([]Stage, 0, len(p.stages)+len(stages))
	all = append(all, p.stages...)
	all = append(all, stages...)
	return Pipeline{stages: all, observe: p.observe}
}

// Handler wraps next so it only runs once every stage has accepted the
// request. It has the chi middleware signature.
func (p Pipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, stage := range p.stages {
			var rej *Rejection
			r, rej = stage(r)
			if rej != nil {
				p.reject(w, r, rej)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (p Pipeline) reject(w http.ResponseWriter, r *http.Request, rej *Rejection) {
	if p.observe != nil {
		p.observe(rej.Stage, rej.Status)
	}
	hlog.FromRequest(r).Debug().
		Str("stage", rej.Stage).
		Int("status", rej.Status).
		Msg("Request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rej.Status)
	json.NewEncoder(w).Encode(map[string]string{"error": rej.Message})
}
