package api

import (
	"net/http"

	"github.com/okian/dropout/internal/domain/features"
	"github.com/okian/dropout/internal/domain/model"
)

// basicRequest mirrors the OpenAPI StudentBasicInput schema.
type basicRequest struct {
	Faculty    string   `json:"faculty" validate:"required"`
	Gender     string   `json:"gender" validate:"required"`
	GPAX       *float64 `json:"gpax" validate:"required,gte=0,lte=4"`
	CountF     *int     `json:"count_f" validate:"required,gte=0"`
	Year1Term1 *float64 `json:"year1_term1" validate:"omitempty,gte=0,lte=4"`
	Year1Term2 *float64 `json:"year1_term2" validate:"omitempty,gte=0,lte=4"`
	Year2Term1 *float64 `json:"year2_term1" validate:"omitempty,gte=0,lte=4"`
	Year2Term2 *float64 `json:"year2_term2" validate:"omitempty,gte=0,lte=4"`
	Year3Term1 *float64 `json:"year3_term1" validate:"omitempty,gte=0,lte=4"`
	Year3Term2 *float64 `json:"year3_term2" validate:"omitempty,gte=0,lte=4"`
	Year4Term1 *float64 `json:"year4_term1" validate:"omitempty,gte=0,lte=4"`
	Year4Term2 *float64 `json:"year4_term2" validate:"omitempty,gte=0,lte=4"`
	Year5Term1 *float64 `json:"year5_term1" validate:"omitempty,gte=0,lte=4"`
	Year5Term2 *float64 `json:"year5_term2" validate:"omitempty,gte=0,lte=4"`
}

func (b basicRequest) record() model.StudentRecord {
	rec := model.StudentRecord{
		Faculty: b.Faculty,
		Gender:  b.Gender,
		Terms: []*float64{
			b.Year1Term1, b.Year1Term2,
			b.Year2Term1, b.Year2Term2,
			b.Year3Term1, b.Year3Term2,
			b.Year4Term1, b.Year4Term2,
			b.Year5Term1, b.Year5Term2,
		},
	}
	if b.GPAX != nil {
		rec.GPAX = *b.GPAX
	}
	if b.CountF != nil {
		rec.CountF = *b.CountF
	}
	return rec
}

// futureRequest mirrors FuturePredictionRequest.
type futureRequest struct {
	basicRequest
	FutureGPA *float64 `json:"future_gpa" validate:"required,gte=0,lte=4"`
}

// PredictHandler serves the single-record prediction endpoints.
type PredictHandler struct {
	deps     PredictDependencies
	validate *requestValidator
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps PredictDependencies, rv *requestValidator) *PredictHandler {
	return &PredictHandler{deps: deps, validate: rv}
}

// HandlePredict handles POST /api/v1/predict with an engineered feature map.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if !allow(w, r, op, http.MethodPost) {
		return
	}
	var raw map[string]any
	if err := decodeJSON(w, r, &raw); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if raw == nil {
		fail(w, NewKind(op, ErrBadRequest))
		return
	}
	if !h.deps.Ready() {
		fail(w, NewKind(op, ErrServiceUnavailable))
		return
	}
	out, err := h.deps.PredictRaw(r.Context(), features.Raw(raw))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePredictFromBasic handles POST /api/v1/predict-from-basic.
func (h *PredictHandler) HandlePredictFromBasic(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_from_basic"
	if !allow(w, r, op, http.MethodPost) {
		return
	}
	var req basicRequest
	if err := h.bind(w, r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if !h.deps.Ready() {
		fail(w, NewKind(op, ErrServiceUnavailable))
		return
	}
	out, err := h.deps.PredictBasic(r.Context(), req.record())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePredictFuture handles POST /api/v1/predict-future.
func (h *PredictHandler) HandlePredictFuture(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_future"
	if !allow(w, r, op, http.MethodPost) {
		return
	}
	var req futureRequest
	if err := h.bind(w, r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if !h.deps.Ready() {
		fail(w, NewKind(op, ErrServiceUnavailable))
		return
	}
	out, err := h.deps.PredictFuture(r.Context(), req.record(), *req.FutureGPA)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PredictHandler) bind(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}
