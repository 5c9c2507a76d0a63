package handler

import (
	"encoding/json"
	"net/http"

	"schooltrack/internal/core/model"
	"schooltrack/internal/core/service"
)

type SchoolHandler struct {
	schoolService service.SchoolService
}

func NewSchoolHandler(schoolService service.SchoolService) *SchoolHandler {
	return &SchoolHandler{
		schoolService: schoolService,
	}
}

type createSchoolRequest struct {
	Name     string                  `json:"name"`
	Location model.ReferenceLocation `json:"location"`
}

func (h *SchoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSchoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	school, err := h.schoolService.CreateSchool(req.Name, req.Location)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, school)
}

func (h *SchoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "School ID required", http.StatusBadRequest)
		return
	}

	school, err := h.schoolService.GetSchool(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if school == nil {
		http.Error(w, "School not found", http.StatusNotFound)
		return
	}
	writeJSON(w, school)
}

func (h *SchoolHandler) List(w http.ResponseWriter, r *http.Request) {
	schools, err := h.schoolService.GetSchools()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, schools)
}

type updateLocationRequest struct {
	ID       string                  `json:"id"`
	Location model.ReferenceLocation `json:"location"`
}

func (h *SchoolHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	school, err := h.schoolService.UpdateLocation(req.ID, req.Location)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, school)
}
