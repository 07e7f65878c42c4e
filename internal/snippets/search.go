package snippets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/snipstash/backend/internal/auth"
	"github.com/snipstash/backend/internal/embedding"
	"go.uber.org/zap"
)

// ErrSearchUnavailable signals that the query could not be embedded.
// It is distinct from an empty result set: callers can tell "nothing
// matched" apart from "search is down".
var ErrSearchUnavailable = errors.New("snippets: search unavailable")

// Search embeds the query text, fetches the requester's accessible
// candidates, and returns at most k snippets ranked by cosine similarity.
// An anonymous requester only ever sees public snippets.
func (s *Service) Search(ctx context.Context, queryText string, requester auth.Identity, k int) ([]Snippet, error) {
	if k <= 0 {
		k = s.defaultLimit
	}

	queryVector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		s.logError(opSearch, "query_embed_failed", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	candidates, err := s.accessibleCandidates(ctx, requester)
	if err != nil {
		return nil, err
	}

	return s.rank(queryVector, candidates, k), nil
}

// accessibleCandidates fetches every snippet the requester may see, with
// embeddings, in a single disjunctive query: owned, public, or shared
// through the requester's team with team visibility.
func (s *Service) accessibleCandidates(ctx context.Context, requester auth.Identity) ([]Snippet, error) {
	db := s.db.WithContext(ctx)

	access := db.Where("user_id = ?", requester.UserID).
		Or("visibility = ?", VisibilityPublic)
	if requester.TeamID != nil {
		access = access.Or("team_id = ? AND visibility = ?", *requester.TeamID, VisibilityTeam)
	}

	var candidates []Snippet
	if err := db.Where(access).Order("id ASC").Find(&candidates).Error; err != nil {
		s.logError(opSearch, "candidate_query_failed", err, zap.Int64("user_id", requester.UserID))
		return nil, newServiceError(opSearch, "candidate_query_failed", err)
	}
	return candidates, nil
}

type scoredSnippet struct {
	snippet Snippet
	score   float64
}

// rank scores candidates against the query vector and returns the top k.
// Candidates without a usable stored vector are skipped: a missing or
// malformed embedding makes a snippet unreachable by search, never an
// error. Ties keep the original candidate order.
func (s *Service) rank(query embedding.Vector, candidates []Snippet, k int) []Snippet {
	scored := make([]scoredSnippet, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate.Embedding) == 0 {
			continue
		}
		vector, err := embedding.Decode(candidate.Embedding)
		if err != nil {
			s.loggerOrDefault().Warn("skipping snippet with malformed stored embedding",
				zap.Int64("snippet_id", candidate.ID), zap.Error(err))
			continue
		}
		scored = append(scored, scoredSnippet{
			snippet: candidate,
			score:   embedding.Cosine(query, vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	ranked := make([]Snippet, len(scored))
	for i, entry := range scored {
		ranked[i] = entry.snippet
	}
	return ranked
}
