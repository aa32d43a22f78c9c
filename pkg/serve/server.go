// Package serve answers check, tree and compile requests over a stream of
// newline-delimited JSON, for editor integrations that keep one bfc process
// running.
package serve

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/praetorian-inc/bfc/pkg/parser"
	"github.com/praetorian-inc/bfc/pkg/types"
	"github.com/praetorian-inc/bfc/pkg/x86"
)

// Version is the server protocol version
const Version = "1.0.0"

// DefaultFile names sources sent without a file name.
const DefaultFile = "<stdin>"

// Server reads requests from in and writes one response per request to out.
type Server struct {
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(in io.Reader, out io.Writer) *Server {
	return &Server{
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run answers requests until the input ends, a "close" request arrives or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.sendReady()

	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-reqChan:
			if s.processRequest(req) {
				return nil
			}
		case err := <-errChan:
			// A request decoded just before the error may still be queued.
			select {
			case req := <-reqChan:
				if s.processRequest(req) {
					return nil
				}
			default:
			}
			if !errors.Is(err, io.EOF) {
				s.sendError("decode", err.Error())
			}
			return nil
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(req Request) bool {
	switch req.Type {
	case "check":
		s.handleCheck(req.Payload)
	case "tree":
		s.handleTree(req.Payload)
	case "compile":
		s.handleCompile(req.Payload)
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	s.send("ready", ReadyData{
		Version: Version,
		Arches:  []string{x86.Amd64.String(), x86.X86.String()},
	})
}

func (s *Server) handleCheck(payload json.RawMessage) {
	var p SourcePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("check", err.Error())
		return
	}

	file := fileName(p.File)
	_, diags, err := parse(file, p.Source)
	if err != nil {
		s.sendError("check", err.Error())
		return
	}
	s.send("check", CheckResult{File: file, Diagnostics: diags})
}

func (s *Server) handleTree(payload json.RawMessage) {
	var p SourcePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("tree", err.Error())
		return
	}

	file := fileName(p.File)
	tree, diags, err := parse(file, p.Source)
	if err != nil {
		s.sendError("tree", err.Error())
		return
	}
	s.send("tree", TreeResult{File: file, Tree: tree, Diagnostics: diags})
}

func (s *Server) handleCompile(payload json.RawMessage) {
	var p CompilePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("compile", err.Error())
		return
	}

	mode := x86.Amd64
	if p.Arch != "" {
		m, err := x86.ParseMode(p.Arch)
		if err != nil {
			s.sendError("compile", err.Error())
			return
		}
		mode = m
	}

	file := fileName(p.File)
	tree, diags, err := parse(file, p.Source)
	if err != nil {
		s.sendError("compile", err.Error())
		return
	}
	result := CompileResult{File: file, Arch: mode.String(), Diagnostics: diags}
	if len(diags) == 0 {
		var asm bytes.Buffer
		n, err := mode.EmitAsm(&asm, tree)
		if err != nil {
			s.sendError("compile", err.Error())
			return
		}
		result.Assembly = asm.String()
		result.Bytes = n
	}
	s.send("compile", result)
}

func (s *Server) send(respType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(respType, err.Error())
		return
	}
	s.encoder.Encode(Response{
		Success: true,
		Type:    respType,
		Data:    data,
	})
}

func (s *Server) sendError(reqType, msg string) {
	s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	})
}

// parse separates syntax errors, which are results, from other failures.
func parse(file, source string) ([]types.Node, types.ParseErrors, error) {
	tree, err := parser.ParseBytes(file, []byte(source))
	var perrs types.ParseErrors
	if errors.As(err, &perrs) {
		return nil, perrs, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return tree, types.ParseErrors{}, nil
}

func fileName(file string) string {
	if file == "" {
		return DefaultFile
	}
	return file
}
