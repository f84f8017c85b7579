package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/dropout/internal/domain/model"
)

const (
	defaultMaxUpload  = 10 << 20
	uploadField       = "file"
	idempotencyHeader = "Idempotency-Key"
)

// BatchHandler serves file-based batch prediction.
type BatchHandler struct {
	deps      BatchDependencies
	maxUpload int64
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps BatchDependencies) *BatchHandler {
	return &BatchHandler{deps: deps, maxUpload: defaultMaxUpload}
}

// HandleBatchPredict handles POST /api/v1/batch-predict and scores the
// uploaded rows before answering.
func (h *BatchHandler) HandleBatchPredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.batch_predict"
	if !allow(w, r, op, http.MethodPost) {
		return
	}
	if !h.deps.Ready() {
		fail(w, NewKind(op, ErrServiceUnavailable))
		return
	}
	rows, err := h.upload(w, r)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	out, err := h.deps.PredictBatch(r.Context(), rows)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSubmitJob handles POST /api/v1/batch-jobs. The rows are queued and
// the job id is returned immediately.
func (h *BatchHandler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_batch_job"
	if !allow(w, r, op, http.MethodPost) {
		return
	}
	if !h.deps.Ready() {
		fail(w, NewKind(op, ErrServiceUnavailable))
		return
	}
	rows, err := h.upload(w, r)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	sub, err := h.deps.SubmitBatch(r.Context(), key, rows)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if sub.Duplicate {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/api/v1/batch-jobs/"+sub.JobID)
	writeJSON(w, status, sub)
}

// HandleGetJob handles GET /api/v1/batch-jobs/{id}.
func (h *BatchHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_batch_job"
	if !allow(w, r, op, http.MethodGet) {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		fail(w, WrapKind(op, ErrBadRequest, errors.New("missing job id")))
		return
	}
	job, err := h.deps.Job(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if job.Results == nil {
		job.Results = []model.RowResult{}
	}
	writeJSON(w, http.StatusOK, job)
}

// upload reads the multipart file field and parses its rows.
func (h *BatchHandler) upload(w http.ResponseWriter, r *http.Request) ([]model.BatchRow, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: upload exceeds %d bytes", ErrTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: multipart field %q: %w", ErrBadRequest, uploadField, err)
	}
	defer file.Close()
	return h.deps.ReadBatch(file, hdr.Filename)
}
