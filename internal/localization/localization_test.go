package localization

import "testing"

func TestForPageMergesGlobal(t *testing.T) {
	s := ForPage("consent", "en")
	if s["title"] != "Research Experiment: Informed Consent Confirmation" {
		t.Errorf("title = %q", s["title"])
	}
	if s["continue_to_next"] == "" {
		t.Error("global strings not merged")
	}
}

func TestForPageChinese(t *testing.T) {
	s := ForPage("washout", "zh-CN")
	if s["title"] != "短暂休息" {
		t.Errorf("title = %q", s["title"])
	}
	if s["continue_to_next"] != "继续下一步" {
		t.Errorf("global string = %q", s["continue_to_next"])
	}
}

func TestForPageFallsBackToEnglish(t *testing.T) {
	s := ForPage("debrief", "fr")
	if s["title"] != "Study Debrief" {
		t.Errorf("unknown language title = %q", s["title"])
	}
}

func TestForPageUnknownModule(t *testing.T) {
	s := ForPage("no_such_page", "en")
	// Only the global strings remain.
	if s["continue_to_next"] == "" {
		t.Error("global strings missing")
	}
	if _, ok := s["title"]; ok {
		t.Error("unknown module produced a title")
	}
}
