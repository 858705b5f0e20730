package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/mocks"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

type selectorFixture struct {
	selector   *Selector
	collection *QuoteCollection
	filter     *FilterPreference
	cache      *memory.Cache
	picks      []int
}

func newSelectorFixture(t *testing.T) *selectorFixture {
	t.Helper()

	store := memory.NewStore()
	fx := &selectorFixture{
		collection: loadedCollection(t, store),
		filter:     NewFilterPreference(store, discardLogger()),
		cache:      memory.NewCache(),
	}

	fx.selector = NewSelector(SelectorConfig{
		Collection: fx.collection,
		Filter:     fx.filter,
		Cache:      fx.cache,
		SessionTTL: time.Minute,
		Logger:     discardLogger(),
		IntN: func(n int) int {
			fx.picks = append(fx.picks, n)
			return n - 1
		},
	})

	return fx
}

func TestNewSelector_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewSelector(SelectorConfig{}) })
}

func TestSelector_NextPicksFromAll(t *testing.T) {
	fx := newSelectorFixture(t)

	q, err := fx.selector.Next(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultQuotes()[2], q)
	assert.Equal(t, []int{3}, fx.picks, "uniform over the whole collection")
}

func TestSelector_NextHonoursFilter(t *testing.T) {
	fx := newSelectorFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.collection.Add(ctx, domain.Quote{Text: "Keep going.", Category: "Motivation"}))
	_, err := fx.filter.Set(ctx, "Motivation")
	require.NoError(t, err)

	q, err := fx.selector.Next(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, "Keep going.", q.Text)
	assert.Equal(t, []int{2}, fx.picks)
}

func TestSelector_NoMatches(t *testing.T) {
	fx := newSelectorFixture(t)
	ctx := context.Background()

	_, err := fx.filter.Set(ctx, "Science")
	require.NoError(t, err)

	_, err = fx.selector.Next(ctx, "s1")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, domain.MsgNoMatches, err.Error())

	_, err = fx.cache.Get(ctx, lastQuoteKey("s1"))
	assert.True(t, domain.IsNotFound(err), "nothing remembered when nothing was shown")
}

func TestSelector_LastRestoresPerSession(t *testing.T) {
	fx := newSelectorFixture(t)
	ctx := context.Background()

	_, err := fx.selector.Last(ctx, "s1")
	require.True(t, domain.IsNotFound(err))

	shown, err := fx.selector.Next(ctx, "s1")
	require.NoError(t, err)

	last, err := fx.selector.Last(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, shown, last)

	_, err = fx.selector.Last(ctx, "s2")
	assert.True(t, domain.IsNotFound(err), "sessions do not share the last quote")
}

func TestSelector_CacheWriteFailureStillShows(t *testing.T) {
	store := memory.NewStore()
	cache := mocks.NewMockCache(t)
	cache.EXPECT().Set(mock.Anything, "session:s1:"+ports.KeyLastQuote, mock.Anything, time.Minute).
		Return(errors.New("cache down"))

	s := NewSelector(SelectorConfig{
		Collection: loadedCollection(t, store),
		Filter:     NewFilterPreference(store, nil),
		Cache:      cache,
		SessionTTL: time.Minute,
		IntN:       func(int) int { return 0 },
	})

	q, err := s.Next(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultQuotes()[0], q)
}
