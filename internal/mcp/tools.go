package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-tg/github-reader/internal/pipeline"
)

// repoToolTags mark every repository tool as requiring an API token.
var repoToolTags = []string{pipeline.TagAPI, pipeline.TagGitHub, pipeline.TagRepo}

// Branch and commit listing bounds.
const (
	defaultBranchLimit = 20
	maxBranchLimit     = 100
	defaultCommitLimit = 10
	maxCommitLimit     = 50
)

// readmeCandidates are tried in order until one resolves to a blob.
var readmeCandidates = []string{
	"README.md", "README", "readme.md", "Readme.md", "README.rst", "README.txt",
}

// addTool registers one tool with the SDK, wrapping its handler in the
// interceptor chain and recording its descriptor in the registry.
func addTool[In, Out any](s *Server, tool *mcp.Tool, tags []string, fn func(context.Context, In) (Out, error)) {
	desc := &pipeline.Descriptor{
		Name:        tool.Name,
		Description: tool.Description,
		Tags:        tags,
	}
	s.registry.Register(desc)

	mcp.AddTool(s.mcp, tool, func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		var zero Out
		result, err := s.chain.Run(ctx, desc, func(ctx context.Context) (any, error) {
			return fn(ctx, args)
		})
		if err != nil {
			return nil, zero, err
		}
		out, ok := result.(Out)
		if !ok {
			return nil, zero, fmt.Errorf("unexpected result type for tool %s", tool.Name)
		}
		return nil, out, nil
	})
}

// registerTools registers all repository reader tools.
func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        "get_repository_info",
		Description: "Get basic repository metadata: name, description, stars, forks, language, license, dates, and topics",
	}, repoToolTags, s.getRepositoryInfo)

	addTool(s, &mcp.Tool{
		Name:        "get_directory_contents",
		Description: "List files and directories at a given path in a repository",
	}, repoToolTags, s.getDirectoryContents)

	addTool(s, &mcp.Tool{
		Name:        "get_file_content",
		Description: "Read the content of a specific file in a repository",
	}, repoToolTags, s.getFileContent)

	addTool(s, &mcp.Tool{
		Name:        "get_branches",
		Description: "List repository branches with last commit info",
	}, repoToolTags, s.getBranches)

	addTool(s, &mcp.Tool{
		Name:        "get_readme",
		Description: "Get repository README content",
	}, repoToolTags, s.getReadme)

	addTool(s, &mcp.Tool{
		Name:        "get_commits",
		Description: "Get recent commits on a branch",
	}, repoToolTags, s.getCommits)
}

// ===== QUERY DOCUMENTS =====

const queryDefaultBranch = `
query GetDefaultBranch($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    defaultBranchRef { name }
  }
}
`

const queryRepositoryInfo = `
query GetRepository($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    name
    description
    stargazerCount
    forkCount
    primaryLanguage { name }
    licenseInfo { name spdxId }
    createdAt
    updatedAt
    isPrivate
    defaultBranchRef { name }
    repositoryTopics(first: 10) {
      nodes { topic { name } }
    }
  }
}
`

const queryDirectoryContents = `
query GetDirectoryContents($owner: String!, $name: String!, $expression: String!) {
  repository(owner: $owner, name: $name) {
    object(expression: $expression) {
      ... on Tree {
        entries {
          name
          type
          path
        }
      }
    }
  }
}
`

const queryFileContent = `
query GetFileContent($owner: String!, $name: String!, $expression: String!) {
  repository(owner: $owner, name: $name) {
    object(expression: $expression) {
      ... on Blob {
        text
        byteSize
        isBinary
      }
    }
  }
}
`

const queryBranches = `
query GetBranches($owner: String!, $name: String!, $limit: Int!) {
  repository(owner: $owner, name: $name) {
    refs(refPrefix: "refs/heads/", first: $limit) {
      nodes {
        name
        target {
          ... on Commit {
            oid
            committedDate
            messageHeadline
          }
        }
      }
    }
  }
}
`

const queryReadme = `
query GetReadme($owner: String!, $name: String!, $expression: String!) {
  repository(owner: $owner, name: $name) {
    object(expression: $expression) {
      ... on Blob {
        text
      }
    }
  }
}
`

const queryCommits = `
query GetCommits($owner: String!, $name: String!, $branch: String!, $limit: Int!) {
  repository(owner: $owner, name: $name) {
    ref(qualifiedName: $branch) {
      target {
        ... on Commit {
          history(first: $limit) {
            nodes {
              oid
              messageHeadline
              message
              author {
                name
                email
                date
              }
            }
          }
        }
      }
    }
  }
}
`

// resolveBranch returns branch unchanged when set, otherwise the
// repository's default branch ("main" when the repository has none).
func (s *Server) resolveBranch(ctx context.Context, owner, repo, branch string) (string, error) {
	if branch != "" {
		return branch, nil
	}
	result, err := s.client.Execute(ctx, queryDefaultBranch, map[string]any{
		"owner": owner, "name": repo,
	})
	if err != nil {
		return "", err
	}
	repository := getMap(result, "repository")
	if repository == nil {
		return "", fmt.Errorf("repository %s/%s not found", owner, repo)
	}
	if name := getString(getMap(repository, "defaultBranchRef"), "name"); name != "" {
		return name, nil
	}
	return "main", nil
}

// ===== get_repository_info =====

type repositoryInfoInput struct {
	Owner string `json:"owner" jsonschema:"required,Repository owner (user or organization)"`
	Repo  string `json:"repo" jsonschema:"required,Repository name"`
}

type repositoryInfoOutput struct {
	Success       bool     `json:"success"`
	Owner         string   `json:"owner"`
	Repo          string   `json:"repo"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	Language      string   `json:"language"`
	License       string   `json:"license"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	IsPrivate     bool     `json:"is_private"`
	DefaultBranch string   `json:"default_branch"`
	Topics        []string `json:"topics"`
}

func (s *Server) getRepositoryInfo(ctx context.Context, args repositoryInfoInput) (repositoryInfoOutput, error) {
	var out repositoryInfoOutput

	result, err := s.client.Execute(ctx, queryRepositoryInfo, map[string]any{
		"owner": args.Owner, "name": args.Repo,
	})
	if err != nil {
		return out, err
	}

	repository := getMap(result, "repository")
	if repository == nil {
		return out, fmt.Errorf("repository %s/%s not found", args.Owner, args.Repo)
	}

	topics := []string{}
	for _, node := range getSlice(getMap(repository, "repositoryTopics"), "nodes") {
		nodeMap, _ := node.(map[string]any)
		if name := getString(getMap(nodeMap, "topic"), "name"); name != "" {
			topics = append(topics, name)
		}
	}

	out = repositoryInfoOutput{
		Success:       true,
		Owner:         args.Owner,
		Repo:          args.Repo,
		Name:          getString(repository, "name"),
		Description:   getString(repository, "description"),
		Stars:         getInt(repository, "stargazerCount"),
		Forks:         getInt(repository, "forkCount"),
		Language:      getString(getMap(repository, "primaryLanguage"), "name"),
		License:       getString(getMap(repository, "licenseInfo"), "spdxId"),
		CreatedAt:     getString(repository, "createdAt"),
		UpdatedAt:     getString(repository, "updatedAt"),
		IsPrivate:     getBool(repository, "isPrivate"),
		DefaultBranch: getString(getMap(repository, "defaultBranchRef"), "name"),
		Topics:        topics,
	}
	return out, nil
}

// ===== get_directory_contents =====

type directoryContentsInput struct {
	Owner  string `json:"owner" jsonschema:"required,Repository owner (user or organization)"`
	Repo   string `json:"repo" jsonschema:"required,Repository name"`
	Path   string `json:"path,omitempty" jsonschema:"Directory path (default: repository root)"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch name (defaults to default branch)"`
}

type directoryEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

type directoryContentsOutput struct {
	Success bool             `json:"success"`
	Owner   string           `json:"owner"`
	Repo    string           `json:"repo"`
	Path    string           `json:"path"`
	Branch  string           `json:"branch"`
	Entries []directoryEntry `json:"entries"`
	Count   int              `json:"count"`
}

func (s *Server) getDirectoryContents(ctx context.Context, args directoryContentsInput) (directoryContentsOutput, error) {
	var out directoryContentsOutput

	branch, err := s.resolveBranch(ctx, args.Owner, args.Repo, args.Branch)
	if err != nil {
		return out, err
	}

	expression := branch + ":" + args.Path

	result, err := s.client.Execute(ctx, queryDirectoryContents, map[string]any{
		"owner": args.Owner, "name": args.Repo, "expression": expression,
	})
	if err != nil {
		return out, err
	}

	repository := getMap(result, "repository")
	if repository == nil {
		return out, fmt.Errorf("repository %s/%s not found", args.Owner, args.Repo)
	}
	obj := getMap(repository, "object")
	if obj == nil {
		return out, fmt.Errorf("path %q not found in %s/%s on branch %s", args.Path, args.Owner, args.Repo, branch)
	}

	entries := []directoryEntry{}
	for _, raw := range getSlice(obj, "entries") {
		entry, _ := raw.(map[string]any)
		entryType := "file"
		if getString(entry, "type") == "tree" {
			entryType = "directory"
		}
		entries = append(entries, directoryEntry{
			Name: getString(entry, "name"),
			Type: entryType,
			Path: getString(entry, "path"),
		})
	}

	path := args.Path
	if path == "" {
		path = "/"
	}

	out = directoryContentsOutput{
		Success: true,
		Owner:   args.Owner,
		Repo:    args.Repo,
		Path:    path,
		Branch:  branch,
		Entries: entries,
		Count:   len(entries),
	}
	return out, nil
}

// ===== get_file_content =====

type fileContentInput struct {
	Owner  string `json:"owner" jsonschema:"required,Repository owner (user or organization)"`
	Repo   string `json:"repo" jsonschema:"required,Repository name"`
	Path   string `json:"path" jsonschema:"required,File path"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch name (defaults to default branch)"`
}

type fileContentOutput struct {
	Success  bool   `json:"success"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Path     string `json:"path"`
	Branch   string `json:"branch"`
	Content  string `json:"content"`
	Size     int    `json:"size"`
	IsBinary bool   `json:"is_binary"`
	Message  string `json:"message,omitempty"`
}

func (s *Server) getFileContent(ctx context.Context, args fileContentInput) (fileContentOutput, error) {
	var out fileContentOutput

	branch, err := s.resolveBranch(ctx, args.Owner, args.Repo, args.Branch)
	if err != nil {
		return out, err
	}

	result, err := s.client.Execute(ctx, queryFileContent, map[string]any{
		"owner": args.Owner, "name": args.Repo, "expression": branch + ":" + args.Path,
	})
	if err != nil {
		return out, err
	}

	repository := getMap(result, "repository")
	if repository == nil {
		return out, fmt.Errorf("repository %s/%s not found", args.Owner, args.Repo)
	}
	obj := getMap(repository, "object")
	if obj == nil {
		return out, fmt.Errorf("file %q not found in %s/%s on branch %s", args.Path, args.Owner, args.Repo, branch)
	}

	isBinary := getBool(obj, "isBinary")
	out = fileContentOutput{
		Success:  true,
		Owner:    args.Owner,
		Repo:     args.Repo,
		Path:     args.Path,
		Branch:   branch,
		Size:     getInt(obj, "byteSize"),
		IsBinary: isBinary,
	}
	if isBinary {
		out.Message = "File is binary and cannot be displayed as text"
	} else {
		out.Content = getString(obj, "text")
	}
	return out, nil
}

// ===== get_branches =====

type branchesInput struct {
	Owner string `json:"owner" jsonschema:"required,Repository owner (user or organization)"`
	Repo  string `json:"repo" jsonschema:"required,Repository name"`
	Limit int    `json:"limit,omitempty" jsonschema:"Number of branches to return (default: 20 max: 100)"`
}

type branchLastCommit struct {
	SHA     string `json:"sha"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

type branchInfo struct {
	Name       string           `json:"name"`
	LastCommit branchLastCommit `json:"last_commit"`
}

type branchesOutput struct {
	Success  bool         `json:"success"`
	Owner    string       `json:"owner"`
	Repo     string       `json:"repo"`
	Branches []branchInfo `json:"branches"`
	Count    int          `json:"count"`
}

func (s *Server) getBranches(ctx context.Context, args branchesInput) (branchesOutput, error) {
	var out branchesOutput

	limit := args.Limit
	if limit <= 0 {
		limit = defaultBranchLimit
	}
	if limit > maxBranchLimit {
		limit = maxBranchLimit
	}

	result, err := s.client.Execute(ctx, queryBranches, map[string]any{
		"owner": args.Owner, "name": args.Repo, "limit": limit,
	})
	if err != nil {
		return out, err
	}

	repository := getMap(result, "repository")
	if repository == nil {
		return out, fmt.Errorf("repository %s/%s not found", args.Owner, args.Repo)
	}

	branches := []branchInfo{}
	for _, raw := range getSlice(getMap(repository, "refs"), "nodes") {
		ref, _ := raw.(map[string]any)
		target := getMap(ref, "target")
		branches = append(branches, branchInfo{
			Name: getString(ref, "name"),
			LastCommit: branchLastCommit{
				SHA:     getString(target, "oid"),
				Date:    getString(target, "committedDate"),
				Message: getString(target, "messageHeadline"),
			},
		})
	}

	out = branchesOutput{
		Success:  true,
		Owner:    args.Owner,
		Repo:     args.Repo,
		Branches: branches,
		Count:    len(branches),
	}
	return out, nil
}

// ===== get_readme =====

type readmeInput struct {
	Owner  string `json:"owner" jsonschema:"required,Repository owner (user or organization)"`
	Repo   string `json:"repo" jsonschema:"required,Repository name"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch name (defaults to default branch)"`
}

type readmeOutput struct {
	Success  bool   `json:"success"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Branch   string `json:"branch"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (s *Server) getReadme(ctx context.Context, args readmeInput) (readmeOutput, error) {
	var out readmeOutput

	branch, err := s.resolveBranch(ctx, args.Owner, args.Repo, args.Branch)
	if err != nil {
		return out, err
	}

	for _, filename := range readmeCandidates {
		result, err := s.client.Execute(ctx, queryReadme, map[string]any{
			"owner": args.Owner, "name": args.Repo, "expression": branch + ":" + filename,
		})
		if err != nil {
			return out, err
		}

		repository := getMap(result, "repository")
		if repository == nil {
			return out, fmt.Errorf("repository %s/%s not found", args.Owner, args.Repo)
		}

		if content := getString(getMap(repository, "object"), "text"); content != "" {
			out = readmeOutput{
				Success:  true,
				Owner:    args.Owner,
				Repo:     args.Repo,
				Branch:   branch,
				Filename: filename,
				Content:  content,
			}
			return out, nil
		}
	}

	return out, fmt.Errorf("no README file found in %s/%s on branch %s", args.Owner, args.Repo, branch)
}

// ===== get_commits =====

type commitsInput struct {
	Owner  string `json:"owner" jsonschema:"required,Repository owner (user or organization)"`
	Repo   string `json:"repo" jsonschema:"required,Repository name"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch name (defaults to default branch)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Number of commits to return (default: 10 max: 50)"`
}

type commitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

type commitInfo struct {
	SHA             string       `json:"sha"`
	MessageHeadline string       `json:"message_headline"`
	Message         string       `json:"message"`
	Author          commitAuthor `json:"author"`
}

type commitsOutput struct {
	Success bool         `json:"success"`
	Owner   string       `json:"owner"`
	Repo    string       `json:"repo"`
	Branch  string       `json:"branch"`
	Commits []commitInfo `json:"commits"`
	Count   int          `json:"count"`
}

func (s *Server) getCommits(ctx context.Context, args commitsInput) (commitsOutput, error) {
	var out commitsOutput

	limit := args.Limit
	if limit <= 0 {
		limit = defaultCommitLimit
	}
	if limit > maxCommitLimit {
		limit = maxCommitLimit
	}

	branch, err := s.resolveBranch(ctx, args.Owner, args.Repo, args.Branch)
	if err != nil {
		return out, err
	}

	result, err := s.client.Execute(ctx, queryCommits, map[string]any{
		"owner": args.Owner, "name": args.Repo, "branch": branch, "limit": limit,
	})
	if err != nil {
		return out, err
	}

	repository := getMap(result, "repository")
	if repository == nil {
		return out, fmt.Errorf("repository %s/%s not found", args.Owner, args.Repo)
	}
	ref := getMap(repository, "ref")
	if ref == nil {
		return out, fmt.Errorf("branch %q not found in %s/%s", branch, args.Owner, args.Repo)
	}

	commits := []commitInfo{}
	for _, raw := range getSlice(getMap(getMap(ref, "target"), "history"), "nodes") {
		commit, _ := raw.(map[string]any)
		author := getMap(commit, "author")
		commits = append(commits, commitInfo{
			SHA:             getString(commit, "oid"),
			MessageHeadline: getString(commit, "messageHeadline"),
			Message:         getString(commit, "message"),
			Author: commitAuthor{
				Name:  getString(author, "name"),
				Email: getString(author, "email"),
				Date:  getString(author, "date"),
			},
		})
	}

	out = commitsOutput{
		Success: true,
		Owner:   args.Owner,
		Repo:    args.Repo,
		Branch:  branch,
		Commits: commits,
		Count:   len(commits),
	}
	return out, nil
}
