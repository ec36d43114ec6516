package tsproto

import (
	"context"
	"strconv"
	"strings"
)

// Version is the analysis engine's protocol version, detected once at
// startup and never mutated afterwards.
type Version struct {
	Major int
	Minor int
	Raw   string
}

// ParseVersion parses a self-reported version string. Pre-release suffixes
// ("3.9.0-beta") and missing components are tolerated.
func ParseVersion(s string) Version {
	v := Version{Raw: s}
	parts := strings.SplitN(s, ".", 3)
	if len(parts) > 0 {
		v.Major, _ = strconv.Atoi(numericPrefix(parts[0]))
	}
	if len(parts) > 1 {
		v.Minor, _ = strconv.Atoi(numericPrefix(parts[1]))
	}
	return v
}

// numericPrefix returns the leading digits of s.
func numericPrefix(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s[:i]
		}
	}
	return s
}

// AtLeast reports whether the version is at or above major.minor.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// String returns the raw reported version.
func (v Version) String() string {
	return v.Raw
}

// DetectVersion issues the one-time version query against a running client.
func DetectVersion(ctx context.Context, c *Client) (Version, error) {
	var body StatusBody
	if err := c.Call(ctx, "status", nil, &body); err != nil {
		return Version{}, err
	}
	return ParseVersion(body.Version), nil
}

// CompletionsResult is the protocol-independent shape both builders
// normalize to: candidates plus the member-completion flag where the
// protocol reports one.
type CompletionsResult struct {
	IsMemberCompletion bool
	Entries            []CompletionEntry
}

// CompletionsBuilder abstracts the version-dependent shape of a
// completions-list request. Selected exactly once at startup so request
// construction stays deterministic; call sites never branch on version.
type CompletionsBuilder interface {
	// List issues the completions-list request for a position.
	List(ctx context.Context, c *Client, args CompletionsArgs) (*CompletionsResult, error)
}

// BuilderForVersion selects the builder matching the detected protocol.
// Protocol 3.0 introduced the completionInfo command with the member
// completion flag and trigger character support.
func BuilderForVersion(v Version) CompletionsBuilder {
	if v.AtLeast(3, 0) {
		return completionInfoBuilder{}
	}
	return completionsBuilder{}
}

// completionsBuilder speaks the pre-3.0 protocol: command "completions",
// body is a bare entry array, no member flag, no trigger character.
type completionsBuilder struct{}

func (completionsBuilder) List(ctx context.Context, c *Client, args CompletionsArgs) (*CompletionsResult, error) {
	args.TriggerCharacter = ""

	var entries []CompletionEntry
	if err := c.Call(ctx, "completions", args, &entries); err != nil {
		return nil, err
	}
	return &CompletionsResult{Entries: entries}, nil
}

// completionInfoBuilder speaks protocol 3.0+: command "completionInfo",
// body carries the member completion flag.
type completionInfoBuilder struct{}

func (completionInfoBuilder) List(ctx context.Context, c *Client, args CompletionsArgs) (*CompletionsResult, error) {
	var body CompletionInfoBody
	if err := c.Call(ctx, "completionInfo", args, &body); err != nil {
		return nil, err
	}
	return &CompletionsResult{
		IsMemberCompletion: body.IsMemberCompletion,
		Entries:            body.Entries,
	}, nil
}

// EntryDetails issues one batched elaboration request for the named
// candidates. The command shape is version-stable.
func EntryDetails(ctx context.Context, c *Client, args CompletionDetailsArgs) ([]CompletionEntryDetails, error) {
	var details []CompletionEntryDetails
	if err := c.Call(ctx, "completionEntryDetails", args, &details); err != nil {
		return nil, err
	}
	return details, nil
}
