// internal/services/chat_service_test.go
package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func TestSendUserMessage(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewChatService(db)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "chat_messages"`).WillReturnRows(idRows())
	mock.ExpectCommit()

	message, err := svc.SendUserMessage(userID, &SendMessageRequest{Content: "Is the padparadscha heated?"})
	require.NoError(t, err)
	assert.Equal(t, userID, message.UserID)
	assert.Equal(t, models.ChatSenderUser, message.Sender)
	require.NotNil(t, message.SenderID)
	assert.Equal(t, userID, *message.SenderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendUserMessageUnknownGemstone(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewChatService(db)
	gemID := uuid.New()

	mock.ExpectQuery(`SELECT "id" FROM "gemstones" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.SendUserMessage(uuid.New(), &SendMessageRequest{Content: "About this one", GemstoneID: &gemID})
	assert.ErrorIs(t, err, ErrGemstoneNotFound)

	_, err = svc.SendUserMessage(uuid.New(), &SendMessageRequest{})
	assert.ErrorContains(t, err, "validation failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendAdminReplyThreadsIntoCustomerConversation(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewChatService(db)
	customerID, adminID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "chat_messages"`).WillReturnRows(idRows())
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	message, err := svc.SendAdminReply(customerID, adminID, &SendMessageRequest{Content: "Unheated, with a GRS report."})
	require.NoError(t, err)
	assert.Equal(t, customerID, message.UserID)
	assert.Equal(t, models.ChatSenderAdmin, message.Sender)
	assert.Equal(t, adminID, *message.SenderID)

	_, err = svc.SendAdminReply(uuid.New(), adminID, &SendMessageRequest{Content: "Hello"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadTargetsTheOtherSide(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewChatService(db)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "chat_messages" SET "read_at"=\$1,"updated_at"=\$2 WHERE .*read_at IS NULL.* AND sender = \$4`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), userID, models.ChatSenderUser).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "chat_messages" SET "read_at"=\$1,"updated_at"=\$2 WHERE .*read_at IS NULL.* AND sender <> \$4`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), userID, models.ChatSenderUser).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	read, err := svc.MarkRead(userID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), read)

	read, err = svc.MarkRead(userID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), read)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnreadCountIgnoresOwnMessages(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewChatService(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "chat_messages" WHERE .*sender <> \$2`).
		WithArgs(userID, models.ChatSenderUser).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := svc.UnreadCount(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
