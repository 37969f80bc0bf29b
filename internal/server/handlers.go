package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/nhdewitt/diagweb/internal/builder"
	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/platform"
	"github.com/nhdewitt/diagweb/internal/runner"
)

// ExecuteResponse is returned by POST /execute/{id}.
type ExecuteResponse struct {
	Command string `json:"command"`
	Display string `json:"display"`
	runner.Result
}

type indexCommand struct {
	*catalog.Command
	Visible []catalog.Option
}

type indexData struct {
	Commands []indexCommand
	Family   platform.Family
	Info     platform.Info
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cat := s.Catalog.Get()

	data := indexData{Family: s.Family, Info: s.Info}
	for _, cmd := range cat.CommandsForPlatform(s.Family) {
		data.Commands = append(data.Commands, indexCommand{
			Command: cmd,
			Visible: catalog.OptionsForPlatform(cmd, s.Family),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("render index: %v", err)
	}
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	icon, err := assets.ReadFile("static/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(icon)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"commands": s.Catalog.Get().Len(),
	})
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Info)
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	cmds := s.Catalog.Get().CommandsForPlatform(s.Family)

	out := make([]catalog.Summary, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, cmd.Summary())
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListOptions(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, catalog.OptionsForPlatform(cmd, s.Family))
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"running": s.Runner.Running()})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	var raw map[string]any
	if err := decodeJSONBody(r, &raw); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	values, err := builder.ValuesFromJSON(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	argv, err := builder.Build(cmd, s.Family, values)
	if err != nil {
		var be *builder.BuildError
		if errors.As(err, &be) {
			log.Printf("rejected %s: %v", cmd.ID, be)
			respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:  be.Error(),
				Reason: string(be.Reason),
				Option: be.Option,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Headers go out before the process runs so the client can stop it.
	id := runner.NewID()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Execution-ID", id)
	w.WriteHeader(http.StatusOK)
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Printf("flush %s: %v", id, err)
	}

	res, err := s.Runner.RunWithID(r.Context(), id, argv)
	if err != nil {
		res = runner.Result{ID: id, Argv: argv, ExitCode: -1, Error: err.Error()}
	}

	writeJSON(w, ExecuteResponse{
		Command: cmd.ID,
		Display: displayArgv(argv),
		Result:  res,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.Runner.Stop(id) {
		log.Printf("stop requested for %s", id)
		respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
		return
	}
	respondJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
}

func (s *Server) lookup(w http.ResponseWriter, id string) (*catalog.Command, bool) {
	cmd, ok := s.Catalog.Get().Lookup(id)
	if !ok || !cmd.Platforms.Allows(s.Family) {
		respondError(w, http.StatusNotFound, "unknown command: "+id)
		return nil, false
	}
	return cmd, true
}

// displayArgv renders argv for humans. It is never executed.
func displayArgv(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\"'\\$;&|<>()`*?") {
			a = strconv.Quote(a)
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
