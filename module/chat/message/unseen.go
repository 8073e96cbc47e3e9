package message

import (
	"context"

	chatmodel "LinkChat/module/chat/model"
	"LinkChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
)

// ComputeInitialCounts returns, per counterpart, how many of their messages to the
// requester are still unseen. One aggregation instead of a count per user.
func (s *Store) ComputeInitialCounts(ctx context.Context, requesterID string) (map[string]int64, error) {
	pipeline := mongoPipeline(requesterID)
	cur, err := s.MsgColl.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "aggregate unseen counts")
	}
	defer cur.Close(ctx)

	var rows []chatmodel.UserCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode unseen counts")
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Count
	}
	return out, nil
}

// MarkSeen clears the requester's backlog from counterpart. Invoked when the
// requester opens the conversation, before history is handed back, so the next
// ComputeInitialCounts never double-counts.
func (s *Store) MarkSeen(ctx context.Context, requesterID, counterpartID string) error {
	return s.BulkMarkSeen(ctx, counterpartID, requesterID)
}

func mongoPipeline(requesterID string) []bson.M {
	return []bson.M{
		{"$match": bson.M{"receiver_id": requesterID, "seen": false}},
		{"$group": bson.M{"_id": "$sender_id", "count": bson.M{"$sum": 1}}},
	}
}
