// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/upstream"
)

var (
	// ErrUsernameRequired is returned for empty usernames.
	ErrUsernameRequired = errors.New("username is required")

	// ErrUserNotFound means the upstream has no such user.
	ErrUserNotFound = errors.New("user not found")

	// ErrCouldNotVerify means the upstream lookup failed for another reason.
	ErrCouldNotVerify = errors.New("could not verify user")

	// ErrSelfFriend is returned when owner and friend are the same user.
	ErrSelfFriend = errors.New("cannot add yourself as a friend")
)

// AddFriend verifies friend against the upstream user summary and stores the
// link. An unknown user is ErrUserNotFound; any other lookup failure is
// ErrCouldNotVerify. Nothing is stored in either case.
func (c *Core) AddFriend(ctx context.Context, apiKey, owner, friend string) (models.Friend, error) {
	if err := checkKey(apiKey); err != nil {
		return models.Friend{}, err
	}
	owner = models.CanonicalUsername(owner)
	friend = models.CanonicalUsername(friend)
	if owner == "" || friend == "" {
		return models.Friend{}, ErrUsernameRequired
	}
	if owner == friend {
		return models.Friend{}, ErrSelfFriend
	}

	if _, err := c.agg.UserSummary(ctx, apiKey, friend); err != nil {
		switch {
		case errors.Is(err, upstream.ErrMissingAPIKey):
			return models.Friend{}, err
		case errors.Is(err, upstream.ErrNotFound):
			return models.Friend{}, fmt.Errorf("%w: %s", ErrUserNotFound, friend)
		default:
			logging.Ctx(ctx).Warn().Err(err).Str("friend", friend).Msg("Could not verify friend")
			return models.Friend{}, fmt.Errorf("%w: %s: %v", ErrCouldNotVerify, friend, err)
		}
	}

	f, err := c.store.AddFriend(ctx, owner, friend)
	if err != nil {
		return models.Friend{}, err
	}
	logging.Ctx(ctx).Info().Str("owner", owner).Str("friend", friend).Msg("Friend added")
	return f, nil
}

// RemoveFriend unlinks friend from owner and reports whether a link existed.
func (c *Core) RemoveFriend(ctx context.Context, apiKey, owner, friend string) (bool, error) {
	if err := checkKey(apiKey); err != nil {
		return false, err
	}
	if models.CanonicalUsername(owner) == "" || models.CanonicalUsername(friend) == "" {
		return false, ErrUsernameRequired
	}
	return c.store.RemoveFriend(ctx, owner, friend)
}

// Friends lists owner's friends.
func (c *Core) Friends(ctx context.Context, apiKey, owner string) ([]models.Friend, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	if models.CanonicalUsername(owner) == "" {
		return nil, ErrUsernameRequired
	}
	return c.store.Friends(ctx, owner)
}
