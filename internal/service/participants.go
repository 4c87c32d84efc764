package service

import (
	"context"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// resolveParticipants loads a conversation's member ids and attaches their
// resolved profiles. One directory lookup per member; profiles that fail to
// resolve leave the User field nil rather than failing the whole set, since
// key availability is re-checked where it matters.
func resolveParticipants(ctx context.Context, conversations repositories.ConversationStore, resolver directory.Resolver, conversationID string) ([]models.ConversationParticipant, error) {
	ids, err := conversations.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	participants := make([]models.ConversationParticipant, 0, len(ids))
	for _, id := range ids {
		participant := models.ConversationParticipant{UserID: id}
		if user, err := resolver.FetchUserProfile(ctx, id); err == nil {
			participant.User = &user
		}
		participants = append(participants, participant)
	}
	return participants, nil
}
