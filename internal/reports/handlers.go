package reports

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"staffdir/internal/api"
	"staffdir/internal/directory"
	"staffdir/internal/requestctx"
)

type Handler struct {
	Directory *directory.Service
}

func NewHandler(dir *directory.Service) *Handler {
	return &Handler{Directory: dir}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/org-chart", h.handleOrgChart)
	r.Get("/reports/directory.pdf", h.handleDirectoryPDF)
}

func (h *Handler) handleOrgChart(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	if _, ok := requestctx.GetIdentity(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	employees, err := h.Directory.List(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build org chart", requestID)
		return
	}
	api.Success(w, BuildOrgChart(employees), requestID)
}

func (h *Handler) handleDirectoryPDF(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	if _, ok := requestctx.GetIdentity(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	employees, err := h.Directory.List(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build roster", requestID)
		return
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Employee Directory")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, "Name", "1", 0, "", false, 0, "")
	pdf.CellFormat(70, 7, "Email", "1", 0, "", false, 0, "")
	pdf.CellFormat(50, 7, "Position", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 7, "Department", "1", 0, "", false, 0, "")
	pdf.CellFormat(50, 7, "Manager", "1", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, emp := range employees {
		pdf.CellFormat(60, 7, fmt.Sprintf("%s %s", emp.FirstName, emp.LastName), "1", 0, "", false, 0, "")
		pdf.CellFormat(70, 7, emp.Email, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 7, emp.Position, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 7, emp.Department, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 7, emp.ManagerName, "1", 1, "", false, 0, "")
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="directory.pdf"`)
	if err := pdf.Output(w); err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render pdf", requestID)
	}
}
