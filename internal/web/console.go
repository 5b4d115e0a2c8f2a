// Package web serves the server-rendered console: session badges, the
// certificate submission form and the verification form.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/skillcert/internal/flow"
	"github.com/pendergraft/skillcert/internal/pinning"
	"github.com/pendergraft/skillcert/internal/session"
	submission "github.com/pendergraft/skillcert/internal/submission/domain"
	verification "github.com/pendergraft/skillcert/internal/verification/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUpload bounds the in-memory part of a parsed upload form.
const maxUpload = 32 << 20

// Submitter submits drafts and reports the submission flow state.
type Submitter interface {
	Submit(ctx context.Context, draft *submission.Draft, sess *session.Session) (*submission.Result, error)
	State() flow.State
}

// Verifier verifies content hashes.
type Verifier interface {
	Verify(ctx context.Context, contentHash string) verification.Result
	State() flow.State
}

// Sessions owns the wallet session.
type Sessions interface {
	Current() *session.Session
	Connect(ctx context.Context) (*session.Session, error)
}

// Console holds the per-process draft and renders the page.
type Console struct {
	submitter Submitter
	verifier  Verifier
	sessions  Sessions
	logger    *slog.Logger
	tmpl      *template.Template

	mu         sync.Mutex
	draft      submission.Draft
	verifyHash string
	// verdict is the result for verifyHash, not the service-wide last result.
	verdict verification.Result
}

// New parses the embedded templates and creates a console.
func New(submitter Submitter, verifier Verifier, sessions Sessions, logger *slog.Logger) (*Console, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Console{
		submitter: submitter,
		verifier:  verifier,
		sessions:  sessions,
		logger:    logger,
		tmpl:      tmpl,
	}, nil
}

// RegisterRoutes registers every console route on a chi router.
func (c *Console) RegisterRoutes(r chi.Router) {
	c.RegisterReadRoutes(r)
	c.RegisterWriteRoutes(r)
}

// RegisterReadRoutes registers the page and the verification form.
func (c *Console) RegisterReadRoutes(r chi.Router) {
	r.Get("/", c.handleIndex)
	r.Post("/verify", c.handleVerify)
}

// RegisterWriteRoutes registers the forms that pin files or touch the wallet.
func (c *Console) RegisterWriteRoutes(r chi.Router) {
	r.Post("/submit", c.handleSubmit)
	r.Post("/connect", c.handleConnect)
}

func (c *Console) handleIndex(w http.ResponseWriter, r *http.Request) {
	c.render(w, notice{})
}

func (c *Console) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.render(w, notice{Text: "File too large."})
			return
		}
		c.render(w, notice{Text: "Upload/transaction failed. Check server logs."})
		return
	}

	file, err := formFile(r)
	if err != nil {
		c.logger.Error("reading upload", "error", err)
		c.render(w, notice{Text: "Upload/transaction failed. Check server logs."})
		return
	}

	// Copy the draft so the lock is not held across remote calls.
	c.mu.Lock()
	c.draft.Name = r.FormValue("name")
	c.draft.Description = r.FormValue("description")
	if file != nil {
		c.draft.File = file
	}
	draft := c.draft
	c.mu.Unlock()

	_, err = c.submitter.Submit(r.Context(), &draft, c.sessions.Current())
	if err == nil {
		c.mu.Lock()
		c.draft.Clear()
		c.draft.LastContentHash = draft.LastContentHash
		c.mu.Unlock()
	}

	c.render(w, notice{Text: submission.Notice(err), OK: err == nil})
}

func (c *Console) handleVerify(w http.ResponseWriter, r *http.Request) {
	hash := r.PostFormValue("contentHash")

	c.mu.Lock()
	c.verifyHash = hash
	c.verdict = nil
	c.mu.Unlock()

	result := c.verifier.Verify(r.Context(), hash)

	c.mu.Lock()
	if c.verifyHash == hash {
		c.verdict = result
	}
	c.mu.Unlock()
	c.render(w, notice{})
}

func (c *Console) handleConnect(w http.ResponseWriter, r *http.Request) {
	if _, err := c.sessions.Connect(r.Context()); err != nil {
		c.render(w, notice{Text: "Wallet/contract init failed. Check server logs."})
		return
	}
	c.render(w, notice{Text: "Wallet connected", OK: true})
}

// formFile returns the uploaded file, or nil when none was chosen.
func formFile(r *http.Request) (*pinning.File, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 && header.Filename == "" {
		return nil, nil
	}
	return &pinning.File{Name: header.Filename, Data: data}, nil
}

type notice struct {
	Text string
	OK   bool
}

type page struct {
	Account   string
	Contract  string
	Connected bool
	Notice    notice

	Name        string
	Description string
	FileName    string
	CID         string
	Uploading   bool

	VerifyHash string
	Verifying  bool
	Result     *resultView
}

// resultView is the verification block shown under the verify form.
type resultView struct {
	Kind        string // found, not_found, error, no_wallet
	Name        string
	Description string
	Owner       string
	Message     string
}

func (c *Console) render(w http.ResponseWriter, n notice) {
	p := c.snapshot()
	p.Notice = n

	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		c.logger.Error("rendering console", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (c *Console) snapshot() page {
	sess := c.sessions.Current()
	p := page{
		Account:   "No wallet connected",
		Contract:  "-",
		Uploading: c.submitter.State() == flow.InFlight,
		Verifying: c.verifier.State() == flow.InFlight,
	}
	if sess.HasAccount() {
		p.Account = sess.ActiveAccount.Hex()
		p.Connected = true
	}
	if sess != nil && strings.TrimSpace(sess.ContractAddress) != "" {
		p.Contract = sess.ContractAddress
	}

	c.mu.Lock()
	p.Name = c.draft.Name
	p.Description = c.draft.Description
	if c.draft.File != nil {
		p.FileName = c.draft.File.Name
	}
	p.CID = c.draft.LastContentHash
	p.VerifyHash = c.verifyHash
	p.Result = view(c.verdict)
	c.mu.Unlock()

	return p
}

func view(r verification.Result) *resultView {
	if r == nil {
		return nil
	}
	return verification.Match(r,
		func(f verification.Found) *resultView {
			return &resultView{
				Kind:        "found",
				Name:        f.Name,
				Description: f.Description,
				Owner:       f.Owner.Hex(),
			}
		},
		func(verification.NotFound) *resultView {
			return &resultView{Kind: "not_found"}
		},
		func(f verification.Failed) *resultView {
			switch f.Kind {
			case verification.NoWallet:
				return &resultView{Kind: "no_wallet", Message: "Please install a wallet provider to verify certificates."}
			case verification.NotDeployed:
				return &resultView{Kind: "error", Message: "Contract not deployed to this network."}
			case verification.InFlight:
				return &resultView{Kind: "error", Message: "A verification is already in progress."}
			case verification.InvalidInput:
				return &resultView{Kind: "error", Message: "Enter an IPFS hash."}
			default:
				return &resultView{Kind: "error", Message: "Verification failed. Check server logs."}
			}
		},
	)
}
