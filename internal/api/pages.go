package api

import (
	"net/http"
	"path"

	"github.com/affectlab/xai-dialogue/internal/localization"
	"github.com/affectlab/xai-dialogue/internal/protocol"
	"github.com/affectlab/xai-dialogue/web"
)

// adminPage is the researcher entry point that registers participants. It is
// the only page reachable without a pid; reaching it with one is refused so
// a participant cannot wander back into setup mid-run.
const adminPage = "/html/admin_setup.html"

// ServePage renders study pages through step validation: the participant
// either gets the page their persisted position expects, or a redirect to
// it. Deep links, bookmarks and back-button navigation all collapse onto the
// single valid page.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Path
	if requested == "/" {
		requested = protocol.ConsentPage
	}
	pid := r.URL.Query().Get("pid")

	if path.Base(requested) == path.Base(adminPage) {
		if pid != "" {
			Error(w, http.StatusForbidden, "setup page is not part of the experiment sequence")
			return
		}
		h.renderer.Render(w, adminPage, web.PageData{
			Language: localization.DefaultLanguage,
			Strings:  localization.ForPage("global", localization.DefaultLanguage),
		})
		return
	}

	if pid == "" {
		http.Redirect(w, r, adminPage, http.StatusFound)
		return
	}

	decision, err := h.proto.Resolve(r.Context(), pid, requested)
	if err != nil {
		h.logger.Error("Failed to resolve step", "participant_id", pid, "error", err)
		Error(w, http.StatusInternalServerError, "failed to resolve step")
		return
	}

	if !decision.Serve {
		h.logger.Info("Redirecting to expected step",
			"participant_id", pid, "requested", requested, "redirect", decision.RedirectURL)
		http.Redirect(w, r, decision.RedirectURL, http.StatusFound)
		return
	}

	data := web.PageData{
		ParticipantID: pid,
		StepIndex:     decision.StepIndex,
		StepName:      decision.StepName,
		Language:      decision.Language,
		Strings:       localization.ForPage(decision.Module, decision.Language),
	}
	if decision.StepName == protocol.StepWashout {
		data.WashoutSeconds = int(h.proto.MinDwell().Seconds())
	}
	h.renderer.Render(w, decision.PagePath, data)
}
