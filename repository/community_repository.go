package repository

import (
	"context"

	"github.com/gocql/gocql"
)

// community reads
//
//	CREATE TABLE community_members (
//		community_id text,
//		member_address text,
//		role text,
//		PRIMARY KEY (community_id, member_address)
//	);
type community struct {
	db *gocql.Session
}

func (r *community) MembersAmong(ctx context.Context, communityID string, candidates []string) ([]string, error) {
	var members []string

	for _, chunk := range chunks(candidates, maxInValues) {
		scanner := r.db.Query(
			"SELECT member_address FROM community_members WHERE community_id = ? AND member_address IN ?",
			communityID,
			chunk,
		).WithContext(ctx).Iter().Scanner()

		found, err := scanStrings(scanner)
		if err != nil {
			return nil, err
		}

		members = append(members, found...)
	}

	return members, nil
}

func NewCommunity(session *gocql.Session) *community {
	return &community{
		db: session,
	}
}
