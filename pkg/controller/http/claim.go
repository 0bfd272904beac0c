package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

// multipartOverhead is allowed on top of the image size limit for form framing
const multipartOverhead = 1 << 20

type submitClaimRequest struct {
	Title              string `json:"title"`
	PolicyNumber       string `json:"policy_number"`
	PolicyholderName   string `json:"policyholder_name"`
	VehicleMake        string `json:"vehicle_make"`
	VehicleModel       string `json:"vehicle_model"`
	VehicleYear        int    `json:"vehicle_year"`
	RegistrationNumber string `json:"registration_number"`
	// IncidentDate accepts YYYY-MM-DD or RFC 3339
	IncidentDate     string `json:"incident_date"`
	IncidentLocation string `json:"incident_location"`
	Description      string `json:"description"`
	ClaimedAmount    int64  `json:"claimed_amount"`
}

func (x *submitClaimRequest) toInput() (usecase.SubmitClaimInput, error) {
	input := usecase.SubmitClaimInput{
		Title:              x.Title,
		PolicyNumber:       x.PolicyNumber,
		PolicyholderName:   x.PolicyholderName,
		VehicleMake:        x.VehicleMake,
		VehicleModel:       x.VehicleModel,
		VehicleYear:        x.VehicleYear,
		RegistrationNumber: x.RegistrationNumber,
		IncidentLocation:   x.IncidentLocation,
		Description:        x.Description,
		ClaimedAmount:      x.ClaimedAmount,
	}

	if s := strings.TrimSpace(x.IncidentDate); s != "" {
		d, err := parseDate(s)
		if err != nil {
			fields := model.FieldErrors{}
			fields.Add("incident_date", "must be YYYY-MM-DD")
			return input, goerr.Wrap(usecase.ErrInvalidInput, "invalid incident date",
				goerr.V("incident_date", s),
				goerr.V(model.FieldErrorsKey, map[string]string(fields)))
		}
		input.IncidentDate = d
	}
	return input, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type claimsResponse struct {
	Claims []*model.Claim `json:"claims"`
}

type imagesResponse struct {
	Images []*model.ClaimImage `json:"images"`
}

type historyResponse struct {
	History []*model.StatusHistory `json:"history"`
}

type assignRequest struct {
	AssessorID string `json:"assessor_id"`
}

func claimID(r *http.Request) model.ClaimID {
	return model.ClaimID(chi.URLParam(r, "id"))
}

func listClaimsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		claims, err := uc.Claim.ListClaims(r.Context(), usecase.ListClaimsQuery{
			Search: q.Get("q"),
			Status: q.Get("status"),
			Sort:   q.Get("sort"),
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, claimsResponse{Claims: claims})
	}
}

func submitClaimHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitClaimRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			handleError(w, r, err)
			return
		}

		claim, err := uc.Claim.SubmitClaim(r.Context(), input)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusCreated, claim)
	}
}

func getClaimHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, err := uc.Claim.GetClaim(r.Context(), claimID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, claim)
	}
}

func listImagesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		images, err := uc.Claim.ListImages(r.Context(), claimID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, imagesResponse{Images: images})
	}
}

// uploadImageHandler accepts a multipart form with the image in field "file"
func uploadImageHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := uc.Policy().MaxImageBytes
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

		if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				fields := model.FieldErrors{}
				fields.Add("file", "file exceeds the size limit")
				handleError(w, r, goerr.Wrap(usecase.ErrInvalidInput, "upload too large",
					goerr.V("limit", limit),
					goerr.V(model.FieldErrorsKey, map[string]string(fields))))
				return
			}
			handleError(w, r, goerr.Wrap(usecase.ErrInvalidInput, "malformed multipart form: "+err.Error()))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			fields := model.FieldErrors{}
			fields.Add("file", "required")
			handleError(w, r, goerr.Wrap(usecase.ErrInvalidInput, "missing file field",
				goerr.V(model.FieldErrorsKey, map[string]string(fields))))
			return
		}
		defer safe.Close(r.Context(), file)

		img, err := uc.Claim.UploadImage(r.Context(), claimID(r), usecase.UploadImageInput{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Data:        file,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusCreated, img)
	}
}

func listHistoryHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := uc.Claim.ListHistory(r.Context(), claimID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, historyResponse{History: history})
	}
}

func recordDecisionHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req usecase.RecordDecisionInput
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		claim, err := uc.Claim.RecordDecision(r.Context(), claimID(r), req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, claim)
	}
}

func assignAssessorHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		claim, err := uc.Claim.AssignAssessor(r.Context(), claimID(r), req.AssessorID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, claim)
	}
}

func requestAnalysisHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, err := uc.Claim.RequestAnalysis(r.Context(), claimID(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusAccepted, claim)
	}
}
