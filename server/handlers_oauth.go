package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-identity-server/audit"
	"github.com/jrsteele09/go-identity-server/auth"
)

// authorizeRequest carries the query parameters of an interactive
// authorization request through the login form round trip.
type authorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

func authorizeRequestFromValues(values url.Values) authorizeRequest {
	req := authorizeRequest{
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		ResponseType:        values.Get("response_type"),
		Scope:               values.Get("scope"),
		State:               values.Get("state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: values.Get("code_challenge_method"),
	}
	// RFC 7636 defaults the transform to plain when only a challenge is sent.
	if req.CodeChallenge != "" && req.CodeChallengeMethod == "" {
		req.CodeChallengeMethod = "plain"
	}
	return req
}

// validateAuthorizeRequest rejects malformed authorization requests before a
// login form is ever shown. Client and redirect URI failures render an error
// page rather than redirecting anywhere.
func (s *Server) validateAuthorizeRequest(req authorizeRequest) error {
	if req.ClientID == "" || req.RedirectURI == "" {
		return errors.New("client_id and redirect_uri are required")
	}
	if req.ResponseType != "code" {
		return errors.New("response_type must be 'code'")
	}
	if req.CodeChallenge != "" && req.CodeChallengeMethod != "S256" && req.CodeChallengeMethod != "plain" {
		return errors.New("unsupported code_challenge_method")
	}

	client, err := s.auth.ValidateAuthorizationRequest(req.ClientID, req.RedirectURI)
	if err != nil {
		return err
	}
	if client.IsPublic() && s.config.GetRequirePKCE() && req.CodeChallenge == "" {
		return errors.New("public clients must send a PKCE code_challenge")
	}
	return nil
}

// AuthorizeGetHandler validates the authorization request and renders the
// login form.
func (s *Server) AuthorizeGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := authorizeRequestFromValues(r.URL.Query())

		if err := s.validateAuthorizeRequest(req); err != nil {
			http.Error(w, "Invalid authorization request: "+err.Error(), http.StatusBadRequest)
			return
		}

		s.renderLoginPage(w, req, "", http.StatusOK)
	}
}

// AuthorizePostHandler authenticates the submitted credentials, issues an
// authorization code and redirects back to the client with code and state.
func (s *Server) AuthorizePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		req := authorizeRequestFromValues(r.PostForm)
		if err := s.validateAuthorizeRequest(req); err != nil {
			http.Error(w, "Invalid authorization request: "+err.Error(), http.StatusBadRequest)
			return
		}

		code, err := s.auth.IssueAuthorizationCode(
			r.PostFormValue("username"),
			r.PostFormValue("password"),
			auth.AuthorizeParams{
				ClientID:            req.ClientID,
				RedirectURI:         req.RedirectURI,
				Scope:               req.Scope,
				CodeChallenge:       req.CodeChallenge,
				CodeChallengeMethod: req.CodeChallengeMethod,
			},
		)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				s.recordAudit(r, "", audit.ActionLoginFailed, "authorize username="+r.PostFormValue("username"))
				s.renderLoginPage(w, req, "Invalid username or password", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Authorization failed: "+err.Error(), http.StatusBadRequest)
			return
		}

		s.recordAudit(r, code.UserID, audit.ActionCodeIssued, "client_id="+req.ClientID)

		redirectURL, err := url.Parse(req.RedirectURI)
		if err != nil {
			http.Error(w, "Invalid redirect URI", http.StatusBadRequest)
			return
		}
		query := redirectURL.Query()
		query.Set("code", code.Code)
		if req.State != "" {
			query.Set("state", req.State)
		}
		redirectURL.RawQuery = query.Encode()

		http.Redirect(w, r, redirectURL.String(), http.StatusSeeOther)
	}
}

// CallbackHandler is the landing page for the bootstrap default client. It
// echoes the code and state back as JSON so the authorization redirect has
// somewhere real to land during development and testing.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":  r.URL.Query().Get("code"),
			"state": r.URL.Query().Get("state"),
		})
	}
}

// JWKSHandler returns the JSON Web Key Set used to validate ID tokens.
// Retired keys stay published until DropRetired, so tokens signed before a
// rotation keep verifying through the grace window.
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.keys.GetJWKS()
		if err != nil {
			http.Error(w, "Failed to get JWKS: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

type loginPageData struct {
	AppName string
	Error   string
	Request authorizeRequest
}

func (s *Server) renderLoginPage(w http.ResponseWriter, req authorizeRequest, errorMessage string, status int) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_ = s.loginTmpl.Execute(w, loginPageData{
		AppName: s.config.GetAppName(),
		Error:   errorMessage,
		Request: req,
	})
}

const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<title>Sign in - {{.AppName}}</title>
</head>
<body>
	<h1>Sign in to {{.AppName}}</h1>
	{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
	<form method="post" action="/auth/authorize">
		<input type="hidden" name="client_id" value="{{.Request.ClientID}}">
		<input type="hidden" name="redirect_uri" value="{{.Request.RedirectURI}}">
		<input type="hidden" name="response_type" value="{{.Request.ResponseType}}">
		<input type="hidden" name="scope" value="{{.Request.Scope}}">
		<input type="hidden" name="state" value="{{.Request.State}}">
		<input type="hidden" name="code_challenge" value="{{.Request.CodeChallenge}}">
		<input type="hidden" name="code_challenge_method" value="{{.Request.CodeChallengeMethod}}">
		<label>Username <input type="text" name="username" autocomplete="username" required></label>
		<label>Password <input type="password" name="password" autocomplete="current-password" required></label>
		<button type="submit">Sign in</button>
	</form>
</body>
</html>
`
