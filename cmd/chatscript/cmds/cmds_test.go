package cmds

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/chatscript/pkg/script"
	"github.com/go-go-golems/chatscript/pkg/settings"
	"github.com/go-go-golems/chatscript/pkg/transcript"
	"github.com/go-go-golems/chatscript/pkg/variables"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

var requiredAssignments = []string{
	"{INJECT_TOPIC}=bees",
	"{INJECT_RESEARCHDESIGN}=Exploratory",
	"{INJECT_DOMAIN}=Ecological Modelling",
	"{INJECT_SPECIALISATION}=Ecological Dynamics",
	"{INJECT_DOMAIN_RELATED_ROLE}=Ecologist",
}

func TestCollectVariablesChatbotPresets(t *testing.T) {
	vars, err := collectVariables(context.Background(), variableOptions{
		Assignments: requiredAssignments,
		ApiType:     settings.ApiTypeGemini,
	})
	require.NoError(t, err)

	v, ok := vars.Get("{INJECT_CHATBOT}")
	require.True(t, ok)
	assert.Equal(t, "Gemini", v)
	v, ok = vars.Get("{INJECT_CHATBOT_COMPANY}")
	require.True(t, ok)
	assert.Equal(t, "Google", v)
	assert.Equal(t, "Hello bees", vars.Resolve("Hello {INJECT_TOPIC}"))
}

func TestCollectVariablesPrecedence(t *testing.T) {
	values := writeFile(t, "values.yaml", `
"{INJECT_TOPIC}": wasps
"{INJECT_CHATBOT}": Assistant
`)
	vars, err := collectVariables(context.Background(), variableOptions{
		ValuesFile:  values,
		Assignments: requiredAssignments,
		ApiType:     settings.ApiTypeOpenAI,
	})
	require.NoError(t, err)

	v, _ := vars.Get("{INJECT_TOPIC}")
	assert.Equal(t, "bees", v)
	v, _ = vars.Get("{INJECT_CHATBOT}")
	assert.Equal(t, "Assistant", v)
	v, _ = vars.Get("{INJECT_CHATBOT_COMPANY}")
	assert.Equal(t, "OpenAI", v)
}

func TestCollectVariablesMissingRequired(t *testing.T) {
	_, err := collectVariables(context.Background(), variableOptions{
		Assignments: []string{"{INJECT_TOPIC}=bees"},
		ApiType:     settings.ApiTypeOllama,
	})
	var missing *variables.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "{INJECT_RESEARCHDESIGN}", missing.Token)
}

func TestCollectVariablesInteractive(t *testing.T) {
	specs := writeFile(t, "specs.yaml", `
variables:
  - token: "{INJECT_TOPIC}"
    question: "Topic?"
    required: true
`)
	out := &bytes.Buffer{}
	vars, err := collectVariables(context.Background(), variableOptions{
		SpecsFile:   specs,
		ApiType:     settings.ApiTypeOllama,
		Interactive: true,
		In:          strings.NewReader("bees\n"),
		Out:         out,
	})
	require.NoError(t, err)
	v, _ := vars.Get("{INJECT_TOPIC}")
	assert.Equal(t, "bees", v)
	assert.Contains(t, out.String(), "Topic?")
}

func TestDescribeScript(t *testing.T) {
	sc, err := script.Parse([]byte(`[
		{"intro": "Hello {INJECT_TOPIC}"},
		{"reminder_intro": "Recap: "},
		{"reminder_later": "{INJECT_UNKNOWN} again"}
	]`), script.FormatJSON)
	require.NoError(t, err)
	specs, err := variables.DefaultSpecs()
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, describeScript(buf, sc, specs))
	assert.Equal(t,
		"  0  intro  {INJECT_TOPIC}\n"+
			"  1  reminder_intro  (appends intro)\n"+
			"  2  reminder_later  (appends nothing: no earlier later)  {INJECT_UNKNOWN}?\n"+
			"3 entries\n",
		buf.String())
}

func TestValidateCommand(t *testing.T) {
	path := writeFile(t, "script.yaml", `
- intro: Hello {INJECT_TOPIC}
- reminder_intro: "Recap: "
`)
	cmd := NewValidateCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--script", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "2 entries")

	bad := writeFile(t, "bad.json", `[{"a": "one", "b": "two"}]`)
	cmd = NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--script", bad})
	require.Error(t, cmd.Execute())

	forward := writeFile(t, "forward.json", `[{"reminder_b": "x"}, {"b": "y"}]`)
	cmd = NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--script", forward, "--strict-reminders"})
	require.Error(t, cmd.Execute())
}

func TestShowCommand(t *testing.T) {
	tr := transcript.New("llama3", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	tr.Record("intro", "Hello bees", "Bees are insects.")
	tr.Record("reminder_intro", "Recap: Bees are insects.", "They are.")
	tr.CompletedAt = time.Date(2025, 3, 14, 9, 1, 0, 0, time.UTC)

	path, err := transcript.NewWriter(t.TempDir()).Write(tr)
	require.NoError(t, err)

	cmd := NewShowCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	s := out.String()
	assert.Contains(t, s, "model: llama3\n")
	assert.Contains(t, s, "## intro\n\nBees are insects.\n\n## reminder_intro\n\nThey are.\n\n")

	cmd = NewShowCommand()
	out = &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--prompts", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "## Hello bees\n\nBees are insects.\n\n")
}

func newCompletionServer(t *testing.T, status int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "upstream failure", "type": "server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Bees are insects."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 20, "total_tokens": 70}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runArgs(scriptPath string, extra ...string) []string {
	args := []string{"--api-type", "openai", "--model", "gpt-4o-mini", "--script", scriptPath}
	for _, a := range requiredAssignments {
		args = append(args, "--var", a)
	}
	return append(args, extra...)
}

func executeRun(args []string) (string, string, error) {
	cmd := NewRunCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunCommandWritesTranscript(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK)
	scriptPath := writeFile(t, "script.json", `[
		{"intro": "Hello {INJECT_TOPIC}"},
		{"reminder_intro": "Recap: "}
	]`)
	dir := t.TempDir()

	out, errOut, err := executeRun(runArgs(scriptPath,
		"--openai-api-key", "sk-test",
		"--openai-base-url", srv.URL+"/v1",
		"--output-dir", dir,
	))
	require.NoError(t, err)
	assert.Contains(t, out, "Hello bees \n>>>\n")
	assert.Contains(t, out, "Bees are insects.")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, "gpt-4o-mini_run_"), name)
	assert.True(t, strings.HasSuffix(name, ".json"), name)
	assert.Contains(t, errOut, filepath.Join(dir, name))

	tr, err := transcript.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", tr.Model)
	assert.Equal(t, 2, tr.Len())
	reply, ok := tr.Output("intro")
	require.True(t, ok)
	assert.Equal(t, "Bees are insects.", reply)
	_, ok = tr.Prompts.Get("Recap: Bees are insects.")
	assert.True(t, ok)
}

func TestRunCommandWritesNothingOnBackendError(t *testing.T) {
	srv := newCompletionServer(t, http.StatusInternalServerError)
	scriptPath := writeFile(t, "script.json", `[{"intro": "Hello {INJECT_TOPIC}"}, {"outro": "Bye"}]`)
	dir := t.TempDir()

	_, _, err := executeRun(runArgs(scriptPath,
		"--openai-api-key", "sk-test",
		"--openai-base-url", srv.URL+"/v1",
		"--output-dir", dir,
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turn 0 (intro)")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCommandChecksBackendBeforeVariables(t *testing.T) {
	scriptPath := writeFile(t, "script.json", `[{"intro": "Hello {INJECT_TOPIC}"}]`)
	dir := t.TempDir()

	cmd := NewRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--api-type", "openai", "--model", "gpt-4o-mini", "--script", scriptPath, "--output-dir", dir})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key for openai")

	var missing *variables.MissingVariableError
	assert.False(t, errors.As(err, &missing))
}
