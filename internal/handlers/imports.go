package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/importer"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/events"
	"github.com/rs/zerolog"
)

const (
	maxImportFile = 10 << 20
	previewRows   = 5
)

// ImportResult is returned by both import endpoints. Rows are committed one
// by one, so a partial failure leaves the successful rows in place.
type ImportResult struct {
	Kind     importer.Kind `json:"kind"`
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors"`
}

type importEvent struct {
	Owner string `json:"owner"`
	ImportResult
}

// readImportFile parses the multipart "file" field into a table.
func readImportFile(w http.ResponseWriter, r *http.Request) (*importer.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportFile+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, errors.New("File too large. Maximum size is 10MB.")
		}
		return nil, errors.New("Invalid form data")
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("No file uploaded")
	}
	defer file.Close()

	return importer.ReadTable(fh.Filename, file)
}

func importKind(s string) (importer.Kind, bool) {
	switch importer.Kind(strings.ToLower(strings.TrimSpace(s))) {
	case importer.KindProspects:
		return importer.KindProspects, true
	case importer.KindProperties:
		return importer.KindProperties, true
	}
	return "", false
}

// importMapping uses the client's mapping when one was sent and valid, and
// the automatic mapping otherwise.
func importMapping(r *http.Request, kind importer.Kind, headers []string) importer.Mapping {
	if raw := strings.TrimSpace(r.FormValue("mapping")); raw != "" {
		var m importer.Mapping
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			if m = m.Sanitize(kind, headers); len(m) > 0 {
				return m
			}
		}
		zerolog.Ctx(r.Context()).Debug().Msg("import: unusable mapping, falling back to auto-mapping")
	}
	return importer.AutoMap(kind, headers)
}

func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	table, err := readImportFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	kind, ok := importKind(r.FormValue("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be prospects or properties")
		return
	}
	fields := importer.ProspectFields
	if kind == importer.KindProperties {
		fields = importer.PropertyFields
	}

	writeData(w, http.StatusOK, "File parsed successfully", map[string]interface{}{
		"kind":      kind,
		"headers":   table.Headers,
		"rows":      table.Preview(previewRows),
		"totalRows": len(table.Rows),
		"mapping":   importer.AutoMap(kind, table.Headers),
		"fields":    fields,
	})
}

func (h *Handler) ImportProspects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	table, err := readImportFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	res := importer.TransformProspects(table, importMapping(r, importer.KindProspects, table.Headers))
	result := ImportResult{Kind: importer.KindProspects, Total: len(table.Rows)}
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, e.String())
	}

	for _, rec := range res.Records {
		p := rec.Prospect
		p.UserID = owner

		taken, err := h.emailTaken(r, owner, p.Email, p.ID)
		if err != nil || taken {
			msg := "A prospect with this email already exists"
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Int("row", rec.Row).Msg("import: email lookup")
				msg = "Failed to save prospect"
			}
			result.Errors = append(result.Errors, importer.RowError{Row: rec.Row, Message: msg}.String())
			continue
		}
		if err := h.Prospects.Create(ctx, &p); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int("row", rec.Row).Msg("import: create prospect")
			result.Errors = append(result.Errors, importer.RowError{Row: rec.Row, Message: "Failed to save prospect"}.String())
			continue
		}
		result.Imported++
	}

	h.finishImport(w, r, result)
}

func (h *Handler) ImportProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	table, err := readImportFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	res := importer.TransformProperties(table, importMapping(r, importer.KindProperties, table.Headers))
	result := ImportResult{Kind: importer.KindProperties, Total: len(table.Rows)}
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, e.String())
	}

	for _, rec := range res.Records {
		p := rec.Property
		p.Owner = owner
		p.Images = h.externalImages(p.Images)
		if err := h.Properties.Create(ctx, &p); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int("row", rec.Row).Msg("import: create property")
			result.Errors = append(result.Errors, importer.RowError{Row: rec.Row, Message: "Failed to save property"}.String())
			continue
		}
		result.Imported++
	}

	h.finishImport(w, r, result)
}

func (h *Handler) finishImport(w http.ResponseWriter, r *http.Request, result ImportResult) {
	ctx := r.Context()
	owner := middleware.CurrentUser(ctx).ID

	result.Failed = result.Total - result.Imported
	if result.Errors == nil {
		result.Errors = []string{}
	}

	zerolog.Ctx(ctx).Info().
		Str("kind", string(result.Kind)).
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Msg("import completed")
	h.publish(ctx, events.SubjectImportCompleted, importEvent{Owner: owner.Hex(), ImportResult: result})

	msg := fmt.Sprintf("Import completed: %d imported, %d failed", result.Imported, result.Failed)
	writeData(w, http.StatusOK, msg, result)
}
