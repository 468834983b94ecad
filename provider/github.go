package provider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"

	"github.com/optimode/mailscout/types"
)

const githubConfidence = 0.75

// personalDomains are skipped when collecting member addresses: a
// developer's gmail address tells us nothing about the company.
var personalDomains = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"aol.com":        {},
	"icloud.com":     {},
	"protonmail.com": {},
	"yandex.com":     {},
}

// GitHubProvider discovers addresses from the domain's GitHub
// organization: public member profile emails and addresses mentioned in
// the README and CONTRIBUTORS files of recently updated repositories.
type GitHubProvider struct {
	client     *github.Client
	enabled    bool
	logger     *slog.Logger
	maxMembers int
	maxRepos   int
}

// NewGitHubProvider creates a GitHub provider. The token is optional;
// unauthenticated requests work within GitHub's anonymous rate limits.
func NewGitHubProvider(token string, enabled bool, logger *slog.Logger) *GitHubProvider {
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = github.NewClient(nil)
	}
	return newGitHubProvider(client, enabled, logger)
}

// NewGitHubProviderWithClient creates a GitHub provider with a custom
// API client (for testing).
func NewGitHubProviderWithClient(client *github.Client, enabled bool, logger *slog.Logger) *GitHubProvider {
	return newGitHubProvider(client, enabled, logger)
}

func newGitHubProvider(client *github.Client, enabled bool, logger *slog.Logger) *GitHubProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubProvider{
		client:     client,
		enabled:    enabled,
		logger:     logger,
		maxMembers: 10,
		maxRepos:   5,
	}
}

func (p *GitHubProvider) Name() string { return MethodGitHub }

func (p *GitHubProvider) Available() bool { return p.enabled }

func (p *GitHubProvider) Discover(ctx context.Context, domain string) ([]types.EmailCandidate, error) {
	login, err := p.findOrganization(ctx, domain)
	if err != nil {
		return nil, err
	}
	if login == "" {
		return nil, nil
	}

	emails := make(map[string]struct{})
	p.collectMemberEmails(ctx, login, emails)
	p.collectRepositoryEmails(ctx, login, emails)

	out := make([]types.EmailCandidate, 0, len(emails))
	for email := range emails {
		out = append(out, types.EmailCandidate{
			Email:      email,
			Source:     "github",
			Confidence: githubConfidence,
			FoundAt:    "github:" + domain,
		})
	}
	return out, nil
}

// findOrganization resolves the GitHub org login for a domain: exact
// match on the domain's base name first, then an org search.
func (p *GitHubProvider) findOrganization(ctx context.Context, domain string) (string, error) {
	base, _, _ := strings.Cut(domain, ".")

	org, _, err := p.client.Organizations.Get(ctx, base)
	if err == nil {
		return org.GetLogin(), nil
	}

	result, _, err := p.client.Search.Users(ctx, "type:org "+domain, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 5},
	})
	if err != nil {
		return "", err
	}
	if len(result.Users) == 0 {
		return "", nil
	}
	return result.Users[0].GetLogin(), nil
}

func (p *GitHubProvider) collectMemberEmails(ctx context.Context, login string, emails map[string]struct{}) {
	members, _, err := p.client.Organizations.ListMembers(ctx, login, &github.ListMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		p.logger.Debug("github member listing failed", "org", login, "error", err)
		return
	}

	if len(members) > p.maxMembers {
		members = members[:p.maxMembers]
	}
	for _, member := range members {
		user, _, err := p.client.Users.Get(ctx, member.GetLogin())
		if err != nil {
			continue
		}
		email := strings.ToLower(user.GetEmail())
		if email != "" && isCompanyEmail(email, login) {
			emails[email] = struct{}{}
		}
	}
}

func (p *GitHubProvider) collectRepositoryEmails(ctx context.Context, login string, emails map[string]struct{}) {
	repos, _, err := p.client.Repositories.ListByOrg(ctx, login, &github.RepositoryListByOrgOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: 20},
	})
	if err != nil {
		p.logger.Debug("github repo listing failed", "org", login, "error", err)
		return
	}

	if len(repos) > p.maxRepos {
		repos = repos[:p.maxRepos]
	}
	for _, repo := range repos {
		for _, content := range []string{
			p.readmeContent(ctx, login, repo.GetName()),
			p.fileContent(ctx, login, repo.GetName(), "CONTRIBUTORS"),
		} {
			for _, m := range emailPattern.FindAllString(content, -1) {
				email := strings.ToLower(m)
				if isCompanyEmail(email, login) {
					emails[email] = struct{}{}
				}
			}
		}
	}
}

func (p *GitHubProvider) readmeContent(ctx context.Context, owner, repo string) string {
	readme, _, err := p.client.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		return ""
	}
	content, err := readme.GetContent()
	if err != nil {
		return ""
	}
	return content
}

func (p *GitHubProvider) fileContent(ctx context.Context, owner, repo, path string) string {
	file, _, _, err := p.client.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil || file == nil {
		return ""
	}
	content, err := file.GetContent()
	if err != nil {
		return ""
	}
	return content
}

// isCompanyEmail filters out personal mail providers and addresses
// whose domain has nothing in common with the organization name.
func isCompanyEmail(email, org string) bool {
	_, emailDomain, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}
	emailDomain = strings.ToLower(emailDomain)
	if _, personal := personalDomains[emailDomain]; personal {
		return false
	}

	orgClean := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(org))
	domainClean := strings.NewReplacer(".com", "", ".org", "", ".net", "").Replace(emailDomain)

	return strings.Contains(domainClean, orgClean) || strings.Contains(orgClean, domainClean)
}
