package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMembershipRepo struct {
	isMemberFunc func(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error)
	calls        int
}

func (m *mockMembershipRepo) IsMember(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error) {
	m.calls++

	return m.isMemberFunc(ctx, conferenceID, profileID)
}

func TestCachingMembershipChecker(t *testing.T) {
	conf, profile := uuid.New(), uuid.New()

	t.Run("positive answers are cached", func(t *testing.T) {
		repo := &mockMembershipRepo{isMemberFunc: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
			return true, nil
		}}
		c := NewCachingMembershipChecker(repo, time.Minute, nil)

		for range 3 {
			ok, err := c.IsMember(context.Background(), conf, profile)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		assert.Equal(t, 1, repo.calls)
	})

	t.Run("negative answers are not cached", func(t *testing.T) {
		repo := &mockMembershipRepo{isMemberFunc: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
			return false, nil
		}}
		c := NewCachingMembershipChecker(repo, time.Minute, nil)

		for range 2 {
			ok, err := c.IsMember(context.Background(), conf, profile)
			require.NoError(t, err)
			assert.False(t, ok)
		}

		assert.Equal(t, 2, repo.calls)
	})

	t.Run("errors propagate", func(t *testing.T) {
		repoErr := errors.New("db down")
		repo := &mockMembershipRepo{isMemberFunc: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
			return false, repoErr
		}}
		c := NewCachingMembershipChecker(repo, time.Minute, nil)

		_, err := c.IsMember(context.Background(), conf, profile)
		assert.ErrorIs(t, err, repoErr)
	})

	t.Run("zero ttl queries every time", func(t *testing.T) {
		repo := &mockMembershipRepo{isMemberFunc: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
			return true, nil
		}}
		c := NewCachingMembershipChecker(repo, 0, nil)

		_, _ = c.IsMember(context.Background(), conf, profile)
		_, _ = c.IsMember(context.Background(), conf, profile)

		assert.Equal(t, 2, repo.calls)
	})
}
