package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gnemet/CueForge/internal/i18n"
	"github.com/gnemet/CueForge/internal/pptx"
	"github.com/gnemet/CueForge/internal/runner"
)

// handleGenerate runs one batch from a multipart form and streams the deck
// or archive back. All semantics live in internal/runner; this is glue.
func handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lang := i18n.GetLang(r)

	req := runner.Request{
		SKUs:         r.FormValue("skus"),
		Prices:       r.FormValue("prices"),
		DefaultPrice: r.FormValue("price"),
		Mode:         r.FormValue("mode"),
		Lang:         lang,
	}

	// Per-run credentials override the configured provider.
	req.AI = cfg.AI.Active()
	if v := r.FormValue("provider"); v != "" {
		req.AI = cfg.AI.Providers[v]
		req.AI.Driver = v
	}
	if v := r.FormValue("api_key"); v != "" {
		req.AI.Key = v
	}
	if v := r.FormValue("base_url"); v != "" {
		req.AI.Endpoint = v
	}
	if v := r.FormValue("model"); v != "" {
		req.AI.Model = v
	}

	// Template: uploaded this run, or the library default.
	if file, _, err := r.FormFile("template"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Template = data
	} else if data, _, ok := tplLib.Default(); ok {
		req.Template = data
	}

	report, err := batch.Run(r.Context(), req)
	switch {
	case errors.Is(err, runner.ErrNoTasks):
		writeError(w, http.StatusBadRequest, i18n.T(lang, "msg.no_tasks"))
		return
	case errors.Is(err, runner.ErrNoTemplate):
		writeError(w, http.StatusBadRequest, i18n.T(lang, "msg.no_template"))
		return
	case errors.Is(err, runner.ErrNothingGenerated):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  i18n.T(lang, "msg.nothing_generated"),
			"report": report,
		})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename))
	w.Header().Set("X-Run-Id", report.RunID)
	w.Header().Set("X-Generated-Count", fmt.Sprintf("%d", report.Generated))
	w.Write(report.Output)
}

// handleTemplate reports the library default template and its shape names so
// template authors can check the placeholder contract.
func handleTemplate(w http.ResponseWriter, r *http.Request) {
	data, name, ok := tplLib.Default()
	if !ok {
		writeError(w, http.StatusNotFound, i18n.T(i18n.GetLang(r), "msg.no_template"))
		return
	}
	tpl, err := pptx.Load(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"name":   name,
		"shapes": tpl.ShapeNames(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
