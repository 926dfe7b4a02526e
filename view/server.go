// Package view provides the interactive pieces of a benchmark run: a
// browser based viewer showing frames as they are processed, and a terminal
// key watcher used to abort a run early.
package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"github.com/viamrobotics/keyframe-vo/vo"
)

const (
	// displayWidth is the width frames are downscaled to before serving.
	displayWidth = 640

	serveTimeout = 10 * time.Second
)

var pageTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en"><head><meta http-equiv="refresh" content="1"></head>
<body style="background:#111">
<p style="color:#eee;font-family:monospace">frame {{.Index}}</p>
<img src="/frame.png">
<img src="/disparity.png">
</body></html>
`))

// Server serves the most recent frame of a run to a browser.
type Server struct {
	port   int
	logger golog.Logger

	httpServer *http.Server

	mu        sync.Mutex
	frame     []byte
	disparity []byte
	index     int
}

// NewServer returns a frame viewer that will serve on the given port.
func NewServer(port int, logger golog.Logger) *Server {
	s := &Server{port: port, logger: logger, index: -1}
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/"), s.handleIndex)
	mux.HandleFunc(pat.Get("/frame.png"), s.handleFrame)
	mux.HandleFunc(pat.Get("/disparity.png"), s.handleDisparity)
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", port),
		ReadTimeout:    serveTimeout,
		WriteTimeout:   serveTimeout,
		MaxHeaderBytes: 1 << 20,
		Handler:        mux,
	}
	return s
}

// Handler exposes the viewer's routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Infow("serving frame viewer", "url", fmt.Sprintf("http://localhost:%d", s.port))
	utils.PanicCapturingGo(func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("frame viewer failed", "error", err)
		}
	})
	return nil
}

// Stop shuts the viewer down, interrupting open connections.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Display republishes the frame for serving. The frame is encoded up front;
// the caller may reuse or discard it afterwards.
func (s *Server) Display(ctx context.Context, frame *vo.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encodedFrame, err := encodeForDisplay(frame.Image)
	if err != nil {
		return err
	}
	encodedDisparity, err := encodeForDisplay(frame.Disparity.ToGray())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.frame = encodedFrame
	s.disparity = encodedDisparity
	s.index = frame.Index
	s.mu.Unlock()
	return nil
}

func encodeForDisplay(img image.Image) ([]byte, error) {
	if img.Bounds().Dx() > displayWidth {
		img = imaging.Resize(img, displayWidth, 0, imaging.Box)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	index := s.index
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, map[string]interface{}{"Index": index}); err != nil {
		s.logger.Debugw("failed to render viewer page", "error", err)
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.frame
	s.mu.Unlock()
	s.servePNG(w, data)
}

func (s *Server) handleDisparity(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.disparity
	s.mu.Unlock()
	s.servePNG(w, data)
}

func (s *Server) servePNG(w http.ResponseWriter, data []byte) {
	if data == nil {
		http.Error(w, "no frame yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		s.logger.Debugw("failed to write frame", "error", err)
	}
}
