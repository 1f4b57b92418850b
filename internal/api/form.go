package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/terra-clan/carprice-engine/internal/models"
)

//go:embed web/*.tmpl
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html.tmpl"))

// categoricalLabels are the select captions, in form order
var categoricalLabels = map[string]string{
	models.FieldBrand:        "Brand",
	models.FieldModel:        "Model",
	models.FieldColor:        "Color",
	models.FieldTransmission: "Transmission",
	models.FieldFuelType:     "Fuel Type",
}

type selectField struct {
	Name     string
	Label    string
	Options  []string
	Selected string
}

type numberField struct {
	Name  string
	Label string
	Min   string
	Step  string
	Value string
}

type pageData struct {
	Selects []selectField
	Numbers []numberField
	Result  string
	Error   string
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatStep(step float64) string {
	if step == 0 {
		return "any"
	}
	return formatNumber(step)
}

// buildPage fills the form with submitted values, or defaults when get is nil
func (s *Server) buildPage(get func(string) string) pageData {
	u := s.pricing.Registry().Universe()

	var data pageData
	for _, field := range models.CategoricalFields {
		options, _ := u.Values(field)
		sel := selectField{Name: field, Label: categoricalLabels[field], Options: options}
		if get != nil {
			sel.Selected = get(field)
		}
		if sel.Selected == "" && len(options) > 0 {
			sel.Selected = options[0]
		}
		data.Selects = append(data.Selects, sel)
	}

	for _, in := range models.NumericInputs {
		num := numberField{
			Name:  in.FormKey,
			Label: in.Label,
			Min:   formatNumber(in.Min),
			Step:  formatStep(in.Step),
			Value: formatNumber(in.Default),
		}
		if get != nil {
			num.Value = get(in.FormKey)
		}
		data.Numbers = append(data.Numbers, num)
	}

	return data
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		slog.Error("failed to render form", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleForm shows the empty form. No price is shown until it is submitted.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.buildPage(nil))
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	data := s.buildPage(r.PostForm.Get)

	attrs, err := models.ParseForm(r.PostForm.Get)
	if err == nil {
		var prediction *models.Prediction
		prediction, err = s.pricing.Estimate(attrs)
		if err == nil {
			data.Result = prediction.Formatted
			s.renderPage(w, http.StatusOK, data)
			return
		}
	}

	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		data.Error = vErr.Error()
		s.renderPage(w, http.StatusBadRequest, data)
		return
	}

	slog.Error("form prediction failed", "error", err)
	data.Error = "The price could not be predicted. Please try again later."
	s.renderPage(w, http.StatusInternalServerError, data)
}
