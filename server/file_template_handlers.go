package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
)

const consentTemplate = "consent.html"

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

// consentPage is the consent form's view model. The authorization parameters round-trip
// through hidden fields; html/template escapes every value.
type consentPage struct {
	AppName             string
	Action              string
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	ResponseType        string
	Scope               string
	Error               string
}

func (s *Server) renderConsent(w http.ResponseWriter, status int, params *oauthmodel.AuthorizationParameters, errMsg string) {
	page := consentPage{
		AppName:             s.config.GetAppName(),
		Action:              RouteAuthorize,
		ClientID:            params.ClientID,
		RedirectURI:         params.RedirectURI,
		State:               params.State,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: string(params.CodeChallengeMethod),
		ResponseType:        string(params.ResponseType),
		Scope:               params.Scope,
		Error:               errMsg,
	}

	var buf bytes.Buffer
	if err := s.consent.Execute(&buf, page); err != nil {
		log.Err(err).Msg("failed to render consent page")
		writeJSONError(w, string(oauthmodel.ErrorCodeServerError), "Failed to render consent page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
