package ledger

import "context"

type authorKey struct{}

// AnonymousAuthor is used when no author was attached to the context.
const AnonymousAuthor = "anonymous"

// WithAuthor returns a context carrying the acting agent identity. The
// runtime normally supplies the agent ambiently; in-process implementations
// read it from the context instead.
func WithAuthor(ctx context.Context, author string) context.Context {
	return context.WithValue(ctx, authorKey{}, author)
}

// AuthorFromContext returns the acting agent identity, or AnonymousAuthor
// when none was attached.
func AuthorFromContext(ctx context.Context) string {
	if author, ok := ctx.Value(authorKey{}).(string); ok && author != "" {
		return author
	}
	return AnonymousAuthor
}
