package repository

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
)

// Keeps IN restrictions on the clustering column well under Cassandra's
// max_clustering_key_restrictions_per_query.
const maxInValues = 100

// friendship reads
//
//	CREATE TABLE friendships (
//		address text,
//		friend_address text,
//		created_at timestamp,
//		PRIMARY KEY (address, friend_address)
//	);
//
// Both directions of an accepted friendship are stored.
type friendship struct {
	db *gocql.Session
}

func (r *friendship) GetFriends(ctx context.Context, address string) ([]string, error) {
	scanner := r.db.Query(
		"SELECT friend_address FROM friendships WHERE address = ?",
		address,
	).WithContext(ctx).Iter().Scanner()

	return scanStrings(scanner)
}

func (r *friendship) FriendsAmong(ctx context.Context, address string, candidates []string) ([]string, error) {
	var friends []string

	for _, chunk := range chunks(candidates, maxInValues) {
		scanner := r.db.Query(
			"SELECT friend_address FROM friendships WHERE address = ? AND friend_address IN ?",
			address,
			chunk,
		).WithContext(ctx).Iter().Scanner()

		found, err := scanStrings(scanner)
		if err != nil {
			return nil, err
		}

		friends = append(friends, found...)
	}

	return friends, nil
}

func NewFriendship(session *gocql.Session) *friendship {
	return &friendship{
		db: session,
	}
}

func scanStrings(scanner gocql.Scanner) ([]string, error) {
	var (
		values []string
		err    error
	)

	for scanner.Next() {
		var value string

		if err = scanner.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		values = append(values, value)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to close scanner: %w", err)
	}

	return values, nil
}

func chunks(values []string, size int) [][]string {
	var out [][]string

	for len(values) > size {
		out = append(out, values[:size])
		values = values[size:]
	}

	if len(values) > 0 {
		out = append(out, values)
	}

	return out
}
