package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransduce_PlainText(t *testing.T) {
	reply := Transduce("The file contains three functions.")
	assert.Equal(t, KindText, reply.Kind)
	assert.Equal(t, "The file contains three functions.", reply.Text)
	assert.Nil(t, reply.Intent)
}

func TestTransduce_NakedToolCall(t *testing.T) {
	reply := Transduce(`{"tool_name": "read_file", "arguments": {"path": "notes.txt"}}`)
	require.Equal(t, KindToolIntent, reply.Kind)
	require.NotNil(t, reply.Intent)
	assert.Equal(t, "read_file", reply.Intent.Name)
	assert.Equal(t, "notes.txt", reply.Intent.Arguments["path"])
	assert.NotEmpty(t, reply.Intent.ID)
}

func TestTransduce_FencedToolCall(t *testing.T) {
	content := "Sure, I'll read it:\n```json\n{\"tool_name\": \"list_files\", \"arguments\": {\"path\": \".\"}}\n```"
	reply := Transduce(content)
	require.Equal(t, KindToolIntent, reply.Kind)
	assert.Equal(t, "list_files", reply.Intent.Name)
}

func TestTransduce_BareFence(t *testing.T) {
	content := "```\n{\"tool_name\": \"list_files\", \"arguments\": {}}\n```"
	reply := Transduce(content)
	require.Equal(t, KindToolIntent, reply.Kind)
	assert.Equal(t, "list_files", reply.Intent.Name)
	assert.NotNil(t, reply.Intent.Arguments)
}

func TestTransduce_MalformedJSONFailsOpenToText(t *testing.T) {
	cases := []string{
		`{"tool_name": "read_file", "arguments": {`,       // truncated
		`{"tool": "read_file"}`,                           // wrong key
		`{"tool_name": 42}`,                               // wrong type
		`{"tool_name": ""}`,                               // empty name
		"```json\nnot json at all\n```",                   // garbage in fence
		`As JSON that would be {"tool_name": "x"} right?`, // embedded in prose
	}
	for _, content := range cases {
		reply := Transduce(content)
		assert.Equal(t, KindText, reply.Kind, "content=%q", content)
		assert.Nil(t, reply.Intent, "content=%q", content)
	}
}

func TestTransduce_MissingArgumentsYieldsEmptyMap(t *testing.T) {
	reply := Transduce(`{"tool_name": "list_processes"}`)
	require.Equal(t, KindToolIntent, reply.Kind)
	require.NotNil(t, reply.Intent.Arguments)
	assert.Empty(t, reply.Intent.Arguments)
}
