package spec

// SecuritySchemeType enumerates the security scheme types of the AsyncAPI
// securitySchemeObject.
type SecuritySchemeType string

const (
	SchemeUserPassword SecuritySchemeType = "userPassword"
	SchemeAPIKey       SecuritySchemeType = "apiKey"
	SchemeHTTPAPIKey   SecuritySchemeType = "httpApiKey"
	SchemeHTTP         SecuritySchemeType = "http"
	SchemeOAuth2       SecuritySchemeType = "oauth2"
	SchemeOpenID       SecuritySchemeType = "openIdConnect"
)

// APIKeyLocation says where an API key is carried.
type APIKeyLocation string

const (
	InUser     APIKeyLocation = "user"
	InPassword APIKeyLocation = "password"
	InQuery    APIKeyLocation = "query"
	InHeader   APIKeyLocation = "header"
	InCookie   APIKeyLocation = "cookie"
)

// SecurityRequirement maps a security scheme name to the scopes it demands.
// Exactly one scheme per requirement.
type SecurityRequirement map[string][]string

// SecurityScheme describes one entry of components/securitySchemes.
type SecurityScheme struct {
	Type             SecuritySchemeType
	Description      string
	Name             string         // required for httpApiKey
	In               APIKeyLocation // required for httpApiKey and apiKey
	Scheme           string         // required for http
	BearerFormat     string
	Flows            *OAuth2Flows // required for oauth2
	OpenIDConnectURL string
}

// OAuth2Flows groups the flow objects a scheme supports.
type OAuth2Flows struct {
	Implicit          *OAuth2Flow
	Password          *OAuth2Flow
	ClientCredentials *OAuth2Flow
	AuthorizationCode *OAuth2Flow
}

// OAuth2Flow describes a single OAuth2 flow.
type OAuth2Flow struct {
	AuthorizationURL string
	TokenURL         string
	RefreshURL       string
	Scopes           map[string]string
}

// SupportedScopes returns the union of scopes declared across all flows.
func (f *OAuth2Flows) SupportedScopes() map[string]bool {
	scopes := map[string]bool{}
	for _, flow := range []*OAuth2Flow{f.Implicit, f.Password, f.ClientCredentials, f.AuthorizationCode} {
		if flow == nil {
			continue
		}
		for scope := range flow.Scopes {
			scopes[scope] = true
		}
	}
	return scopes
}

// validate applies the structural constraints of the securitySchemeObject.
func (s *SecurityScheme) validate(path string) error {
	switch s.Type {
	case SchemeOAuth2, SchemeOpenID:
		if s.Flows == nil {
			return documentErrorf(path, "flows must be defined for %s security schemes", s.Type)
		}
	case SchemeHTTP:
		if s.Scheme == "" {
			return documentErrorf(path, "scheme is required for http security schemes")
		}
	case SchemeHTTPAPIKey:
		switch s.In {
		case InQuery, InHeader, InCookie:
		default:
			return documentErrorf(path, "in must be one of query, header or cookie for httpApiKey security schemes")
		}
		if s.Name == "" {
			return documentErrorf(path, "name is required for httpApiKey security schemes")
		}
	}

	if s.Flows != nil {
		if s.Flows.Implicit != nil && s.Flows.Implicit.AuthorizationURL == "" {
			return documentErrorf(path, "implicit OAuth flow is missing authorization URL")
		}
		if s.Flows.Password != nil && s.Flows.Password.TokenURL == "" {
			return documentErrorf(path, "password OAuth flow is missing token URL")
		}
		if s.Flows.ClientCredentials != nil && s.Flows.ClientCredentials.TokenURL == "" {
			return documentErrorf(path, "clientCredentials OAuth flow is missing token URL")
		}
		if s.Flows.AuthorizationCode != nil && s.Flows.AuthorizationCode.TokenURL == "" {
			return documentErrorf(path, "authorizationCode OAuth flow is missing token URL")
		}
	}

	return nil
}

// validateRequirement checks a requirement against the declared schemes:
// the scheme must exist, and scopes may only be demanded from oauth2 or
// openIdConnect schemes (and must be declared by the scheme's flows).
func (d *Document) validateRequirement(req SecurityRequirement, requiredBy string) error {
	if len(req) != 1 {
		return documentErrorf(requiredBy, "security requirement must name exactly one scheme")
	}

	for schemeName, scopes := range req {
		securityScheme, ok := d.Components.SecuritySchemes[schemeName]
		if !ok {
			return documentErrorf(requiredBy, "security scheme %q does not exist in components/securitySchemes", schemeName)
		}

		if len(scopes) == 0 {
			continue
		}
		if securityScheme.Type != SchemeOAuth2 && securityScheme.Type != SchemeOpenID {
			return documentErrorf(requiredBy, "scopes must be empty for %s security requirements", securityScheme.Type)
		}
		if securityScheme.Type == SchemeOAuth2 && securityScheme.Flows != nil {
			supported := securityScheme.Flows.SupportedScopes()
			for _, scope := range scopes {
				if !supported[scope] {
					return documentErrorf(requiredBy, "OAuth2 scope %q is not defined within the %q security scheme", scope, schemeName)
				}
			}
		}
	}

	return nil
}
