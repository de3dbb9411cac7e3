package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quay/zlog"

	"github.com/quay/cvssinfo"
	"github.com/quay/cvssinfo/cvss"
	"github.com/quay/cvssinfo/datastore"
	"github.com/quay/cvssinfo/nvd"
	je "github.com/quay/cvssinfo/pkg/jsonerr"
	"github.com/quay/cvssinfo/updates"
)

var _ http.Handler = (*HTTP)(nil)

type HTTP struct {
	*http.ServeMux
	// Lifetime context for work detached from a request.
	ctx    context.Context
	store  datastore.Store
	client *nvd.Client
	mgr    *updates.Manager
}

func NewHandler(ctx context.Context, store datastore.Store, client *nvd.Client, mgr *updates.Manager) *HTTP {
	h := &HTTP{ctx: ctx, store: store, client: client, mgr: mgr}
	m := http.NewServeMux()
	m.Handle("/vector", timed("vector", h.Vector))
	m.Handle("/cve", timed("cve", h.CVE))
	m.Handle("/update", timed("update", h.Update))
	m.Handle("/update_operations", timed("update_operations", h.UpdateOperations))
	m.Handle("/update_operations/", timed("update_operations", h.UpdateOperations))
	m.Handle("/metrics", promhttp.Handler())
	h.ServeMux = m
	return h
}

// VectorReport is the decoded form of one vector.
type vectorReport struct {
	Version     int               `json:"version"`
	Vector      string            `json:"vector"`
	Definitions []cvss.Definition `json:"definitions"`
	BaseScore   *float64          `json:"base_score,omitempty"`
	Qualitative string            `json:"qualitative,omitempty"`
}

func reportFor(vector string) (*vectorReport, error) {
	v, err := cvss.Parse(vector)
	if err != nil {
		return nil, err
	}
	ds, err := v.Definitions()
	if err != nil {
		return nil, err
	}
	rep := vectorReport{
		Version:     v.Version(),
		Vector:      v.String(),
		Definitions: ds,
	}
	if s, err := v.Score(); err == nil {
		q, err := cvss.QualitativeScore(v)
		if err == nil {
			rep.BaseScore = &s
			rep.Qualitative = q.String()
		}
	}
	return &rep, nil
}

func (h *HTTP) Vector(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		resp := &je.Response{
			Code:    "method-not-allowed",
			Message: "endpoint only allows GET",
		}
		je.Error(w, resp, http.StatusMethodNotAllowed)
		return
	}
	param, ok := r.URL.Query()["vector"]
	if !ok || len(param) == 0 {
		resp := &je.Response{
			Code:    "bad-request",
			Message: "vector query param is required",
		}
		je.Error(w, resp, http.StatusBadRequest)
		return
	}
	rep, err := reportFor(param[0])
	if err != nil {
		resp := &je.Response{
			Code:    "bad-request",
			Message: fmt.Sprintf("could not decode vector: %v", err),
		}
		zlog.Warn(ctx).Err(err).Msg("could not decode vector")
		je.Error(w, resp, http.StatusBadRequest)
		return
	}
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		// Can't change header or write a different response, because we
		// already started.
		zlog.Warn(ctx).Err(err).Msg("failed to encode response")
	}
}

type recordReport struct {
	cvssinfo.Record
	Report *vectorReport `json:"report,omitempty"`
}

type cveReport struct {
	CVE     string         `json:"cve"`
	Source  string         `json:"source"`
	Records []recordReport `json:"records"`
}

// Decodable returns the record's vector in the form the decoder keys on.
// The 2.0-format feeds publish v2 vectors bare, without their "CVSS2#"
// prefix.
func decodable(r cvssinfo.Record) string {
	if strings.HasPrefix(r.Version, "2") && !strings.HasPrefix(r.Vector, "CVSS2#") {
		return "CVSS2#" + r.Vector
	}
	return r.Vector
}

func (h *HTTP) CVE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		resp := &je.Response{
			Code:    "method-not-allowed",
			Message: "endpoint only allows GET",
		}
		je.Error(w, resp, http.StatusMethodNotAllowed)
		return
	}
	param, ok := r.URL.Query()["cve"]
	if !ok || len(param) == 0 {
		resp := &je.Response{
			Code:    "bad-request",
			Message: "cve query param is required",
		}
		je.Error(w, resp, http.StatusBadRequest)
		return
	}
	id := strings.ToUpper(param[0])
	if !nvd.ValidID(id) {
		resp := &je.Response{
			Code:    "bad-request",
			Message: fmt.Sprintf("malformed CVE ID: %q", param[0]),
		}
		je.Error(w, resp, http.StatusBadRequest)
		return
	}
	got, err := h.store.GetVectors(ctx, []string{id})
	if err != nil {
		resp := &je.Response{
			Code:    "internal server error",
			Message: fmt.Sprintf("could not query datastore: %v", err),
		}
		je.Error(w, resp, http.StatusInternalServerError)
		return
	}
	recs, src := got[id], "feeds"
	if len(recs) == 0 && h.client != nil {
		recs, err = h.client.CVE(ctx, id)
		if err != nil {
			resp := &je.Response{
				Code:    "internal server error",
				Message: fmt.Sprintf("could not query NVD: %v", err),
			}
			zlog.Warn(ctx).Err(err).Msg("could not query NVD")
			je.Error(w, resp, http.StatusInternalServerError)
			return
		}
		src = "api"
	}
	if len(recs) == 0 {
		resp := &je.Response{
			Code:    "not-found",
			Message: fmt.Sprintf("no CVSS data for %s", id),
		}
		je.Error(w, resp, http.StatusNotFound)
		return
	}
	out := cveReport{
		CVE:     id,
		Source:  src,
		Records: make([]recordReport, len(recs)),
	}
	for i, rec := range recs {
		out.Records[i].Record = rec
		if rep, err := reportFor(decodable(rec)); err == nil {
			out.Records[i].Report = rep
		}
	}
	if err := json.NewEncoder(w).Encode(&out); err != nil {
		// Can't change header or write a different response, because we
		// already started.
		zlog.Warn(ctx).Err(err).Msg("failed to encode response")
	}
}

func (h *HTTP) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		resp := &je.Response{
			Code:    "method-not-allowed",
			Message: "endpoint only allows POST",
		}
		je.Error(w, resp, http.StatusMethodNotAllowed)
		return
	}
	// The pass outlives the request, so it runs on the server's context.
	err := h.mgr.Kick(h.ctx)
	switch {
	case errors.Is(err, nil):
		zlog.Info(ctx).Msg("update started")
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, updates.ErrRunning):
		resp := &je.Response{
			Code:    "conflict",
			Message: err.Error(),
		}
		je.Error(w, resp, http.StatusConflict)
	default:
		resp := &je.Response{
			Code:    "internal server error",
			Message: fmt.Sprintf("could not start update: %v", err),
		}
		je.Error(w, resp, http.StatusInternalServerError)
	}
}

func (h *HTTP) UpdateOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		var updaters []string
		if param, ok := r.URL.Query()["updater"]; ok {
			updaters = param
		}
		uos, err := h.store.GetUpdateOperations(ctx, updaters...)
		if err != nil {
			resp := &je.Response{
				Code:    "internal server error",
				Message: fmt.Sprintf("could not get update operations: %v", err),
			}
			je.Error(w, resp, http.StatusInternalServerError)
			return
		}
		if err := json.NewEncoder(w).Encode(uos); err != nil {
			// Can't change header or write a different response, because we
			// already started.
			zlog.Warn(ctx).Err(err).Msg("failed to encode response")
		}

	case http.MethodDelete:
		ref, err := uuid.Parse(filepath.Base(r.URL.Path))
		if err != nil {
			resp := &je.Response{
				Code:    "bad-request",
				Message: fmt.Sprintf("could not parse ref: %v", err),
			}
			zlog.Warn(ctx).Err(err).Msg("could not parse ref")
			je.Error(w, resp, http.StatusBadRequest)
			return
		}
		n, err := h.store.DeleteUpdateOperations(ctx, ref)
		if err != nil {
			resp := &je.Response{
				Code:    "internal server error",
				Message: fmt.Sprintf("could not delete update operation: %v", err),
			}
			je.Error(w, resp, http.StatusInternalServerError)
			return
		}
		if n == 0 {
			resp := &je.Response{
				Code:    "not-found",
				Message: fmt.Sprintf("no update operation %q", ref),
			}
			je.Error(w, resp, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		resp := &je.Response{
			Code:    "method-not-allowed",
			Message: "endpoint only allows GET and DELETE",
		}
		je.Error(w, resp, http.StatusMethodNotAllowed)
	}
}
