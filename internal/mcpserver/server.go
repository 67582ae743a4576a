// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note collection as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/controller"
	"github.com/starford/bucket/internal/models"
)

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *controller.Controller
}

// New creates a new MCP server whose tools drive ctrl.
func New(ctrl *controller.Controller) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"Bucket",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes in creation order. With a query, only notes whose text "+
			"contains it (case-insensitive) are returned."),
		mcp.WithString("query", mcp.Description("Optional substring to filter by")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Surrounding whitespace is trimmed; blank text is rejected."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the text of an existing note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New note text")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("refresh_notes",
		mcp.WithDescription("Re-fetch the note list from the store and return it."),
	), s.refreshNotes)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := ""
	if q, err := req.RequireString("query"); err == nil {
		query = q
	}
	s.ctrl.SetQuery(query)
	return notesResult(s.ctrl.Snapshot().Visible), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.Create(ctx, text); err != nil {
		return errorResult(err), nil
	}
	return notesResult(s.ctrl.Snapshot().Notes), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.ctrl.BeginEdit(id); errors.Is(err, apperr.ErrNotFound) {
		// The note may have been created by another client since the last sync.
		if syncErr := s.ctrl.Synchronize(ctx); syncErr != nil {
			return errorResult(syncErr), nil
		}
		err = s.ctrl.BeginEdit(id)
		if err != nil {
			return errorResult(err), nil
		}
	} else if err != nil {
		return errorResult(err), nil
	}

	s.ctrl.SetDraft(text)
	if err := s.ctrl.CommitEdit(ctx, id); err != nil {
		s.ctrl.CancelEdit()
		return errorResult(err), nil
	}
	return notesResult(s.ctrl.Snapshot().Notes), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.Remove(ctx, id); err != nil {
		return errorResult(err), nil
	}
	return notesResult(s.ctrl.Snapshot().Notes), nil
}

func (s *Server) refreshNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ctrl.Synchronize(ctx); err != nil {
		return errorResult(err), nil
	}
	return notesResult(s.ctrl.Snapshot().Notes), nil
}

func notesResult(notes []models.Note) *mcp.CallToolResult {
	if notes == nil {
		notes = []models.Note{}
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperr.Kind(err), err))
}
