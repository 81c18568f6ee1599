package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quiz-duel-service/internal/domain"
)

func TestRESTGameFlow(t *testing.T) {
	server := httptest.NewServer(newTestHandler(t).Routes())
	defer server.Close()

	var waiting domain.GameView
	if code := postJSON(t, server.URL+"/games/join", map[string]string{"playerId": "alice"}, &waiting); code != http.StatusOK {
		t.Fatalf("expected 200 on join, got %d", code)
	}
	if waiting.Status != domain.GameAwaitingOpponent {
		t.Fatalf("expected waiting game, got %s", waiting.Status)
	}
	if code := postJSON(t, server.URL+"/games/join", map[string]string{"playerId": "alice"}, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on double join, got %d", code)
	}
	if code := postJSON(t, server.URL+"/games/join", map[string]string{"playerId": "ghost"}, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown player, got %d", code)
	}

	var active domain.GameView
	if code := postJSON(t, server.URL+"/games/join", map[string]string{"playerId": "bob"}, &active); code != http.StatusOK {
		t.Fatalf("expected 200 on second join, got %d", code)
	}
	if active.Status != domain.GameActive || len(active.Questions) != domain.QuestionsPerGame {
		t.Fatalf("expected active game with questions, got %+v", active)
	}

	for _, player := range []string{"alice", "bob"} {
		for _, q := range active.Questions {
			var result domain.AnswerResult
			body := map[string]string{"playerId": player, "answer": answerFor(q.ID)}
			if code := postJSON(t, server.URL+"/games/answers", body, &result); code != http.StatusOK {
				t.Fatalf("expected 200 on answer, got %d", code)
			}
			if result.QuestionID != q.ID || result.Status != domain.AnswerCorrect {
				t.Fatalf("unexpected answer result %+v", result)
			}
		}
	}
	if code := postJSON(t, server.URL+"/games/answers", map[string]string{"playerId": "alice", "answer": "x"}, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 once the game finished, got %d", code)
	}

	var final domain.GameView
	if code := getJSON(t, server.URL+"/games/"+active.ID, &final); code != http.StatusOK {
		t.Fatalf("expected 200 on get game, got %d", code)
	}
	if final.Status != domain.GameFinished || final.FirstPlayer.Score != 6 || final.SecondPlayer.Score != 5 {
		t.Fatalf("unexpected final game %+v", final)
	}
	if code := getJSON(t, server.URL+"/players/alice/current-game", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for current game after finish, got %d", code)
	}
	if code := getJSON(t, server.URL+"/games/nope", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", code)
	}
}

func TestViewsHideAcceptedAnswers(t *testing.T) {
	server := httptest.NewServer(newTestHandler(t).Routes())
	defer server.Close()

	postJSON(t, server.URL+"/games/join", map[string]string{"playerId": "alice"}, nil)
	postJSON(t, server.URL+"/games/join", map[string]string{"playerId": "bob"}, nil)

	resp, err := http.Get(server.URL + "/players/bob/current-game")
	if err != nil {
		t.Fatalf("get current game: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(raw), "answer-") || strings.Contains(string(raw), "acceptedAnswers") {
		t.Fatalf("view leaked accepted answers: %s", raw)
	}
}

func TestBadRequestAndMetrics(t *testing.T) {
	server := httptest.NewServer(newTestHandler(t).Routes())
	defer server.Close()

	resp, err := http.Post(server.URL+"/games/join", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
	if code := postJSON(t, server.URL+"/games/join", map[string]string{}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing player id, got %d", code)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `route="join"`) {
		t.Fatalf("expected join requests in metrics, got %s", raw)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrGameNotFound:          http.StatusNotFound,
		domain.ErrInsufficientQuestions: http.StatusNotFound,
		domain.ErrAllQuestionsAnswered:  http.StatusConflict,
		domain.ErrUnavailable:           http.StatusServiceUnavailable,
		domain.ErrInvalidArgument:       http.StatusBadRequest,
		io.ErrUnexpectedEOF:             http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}
