package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivuno/telehealth-server/internal/apperr"
)

func TestEmailTakenExcludesSelf(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserStore(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE email = \\? AND id <> \\?").
		WithArgs("ada@example.com", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	taken, err := s.EmailTaken(context.Background(), "ada@example.com", "u-1")
	require.NoError(t, err)
	assert.False(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUserStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `users` WHERE id = \\?").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Delete(context.Background(), "ghost")
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshToken(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewTokenStore(db)
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `refresh_tokens` SET .*WHERE token = \\? AND is_revoked = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `refresh_tokens` SET .*WHERE token = \\? AND is_revoked = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	revoked, err := s.Revoke(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.Revoke(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveRefreshTokenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewTokenStore(db)

	mock.ExpectQuery("SELECT \\* FROM `refresh_tokens` WHERE .*is_revoked = \\? AND expires_at > \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.FindActive(context.Background(), "tok", "u-1", time.Now())
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "refresh token", nf.Entity)
}

func TestConversationsOnePartner(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewMessageStore(db)
	sent := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT DISTINCT partner_id FROM").
		WithArgs("pat-1", "pat-1").
		WillReturnRows(sqlmock.NewRows([]string{"partner_id"}).AddRow("doc-1"))
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "role"}).AddRow("doc-1", "Grace", "doctor"))
	mock.ExpectQuery("SELECT \\* FROM `messages` WHERE .*ORDER BY created_at desc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "receiver_id", "content", "status", "created_at"}).
			AddRow("m-2", "doc-1", "pat-1", "See you Monday", "sent", sent))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `messages` WHERE sender_id = \\? AND receiver_id = \\? AND status <> \\?").
		WithArgs("doc-1", "pat-1", "read").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	convs, err := s.Conversations(context.Background(), "pat-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Grace", convs[0].Partner.FirstName)
	assert.Equal(t, "See you Monday", convs[0].LastMessage.Content)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
