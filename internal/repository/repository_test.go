package repository

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"secureauthhub/internal/model"
	"secureauthhub/internal/platform/database"
)

func createUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestItemRepositoryCRUD(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewItemRepository(db)

	desc := "first"
	for _, name := range []string{"a", "b", "c"} {
		if err := repo.Create(&model.Item{Name: name, Description: &desc}); err != nil {
			t.Fatalf("create item: %v", err)
		}
	}

	page, err := repo.List(1, 1)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(page) != 1 || page[0].Name != "b" {
		t.Fatalf("expected second item on page, got %+v", page)
	}

	item, err := repo.GetByID(page[0].ID)
	if err != nil || item == nil {
		t.Fatalf("get item: %v %v", item, err)
	}
	item.Name = "renamed"
	item.Description = nil
	if err := repo.Update(item); err != nil {
		t.Fatalf("update item: %v", err)
	}
	reloaded, _ := repo.GetByID(item.ID)
	if reloaded.Name != "renamed" || reloaded.Description != nil {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	if err := repo.Delete(item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	missing, err := repo.GetByID(item.ID)
	if err != nil || missing != nil {
		t.Fatalf("expected nil after delete, got %+v err=%v", missing, err)
	}
}

func TestUserRepositoryLookups(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewUserRepository(db)
	user := createUser(t, db, "alice")

	byName, err := repo.GetByUsername("alice")
	if err != nil || byName == nil || byName.ID != user.ID {
		t.Fatalf("GetByUsername: %+v %v", byName, err)
	}
	byEmail, err := repo.GetByEmail("alice@example.com")
	if err != nil || byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("GetByEmail: %+v %v", byEmail, err)
	}
	none, err := repo.GetByID(user.ID + 100)
	if err != nil || none != nil {
		t.Fatalf("GetByID unknown: %+v %v", none, err)
	}
	if err := repo.Create(&model.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"}); err == nil {
		t.Fatal("expected unique constraint violation on username")
	}
}

func TestDocumentRepositoryOwnership(t *testing.T) {
	db := database.NewTestDB(t)
	docs := NewDocumentRepository(db)
	chunks := NewDocumentChunkRepository(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	older := &model.Document{OwnerID: alice.ID, Filename: "old.txt", S3URL: "u1", ObjectKey: "k1", ExtractedText: "old", UploadedAt: time.Now().Add(-time.Hour)}
	newer := &model.Document{OwnerID: alice.ID, Filename: "new.txt", S3URL: "u2", ObjectKey: "k2", ExtractedText: "new"}
	foreign := &model.Document{OwnerID: bob.ID, Filename: "bob.txt", S3URL: "u3", ObjectKey: "k3", ExtractedText: "bob"}
	for _, d := range []*model.Document{older, newer, foreign} {
		if err := docs.Create(d); err != nil {
			t.Fatalf("create document: %v", err)
		}
	}

	list, err := docs.ListByOwnerID(alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected alice's docs newest first, got %+v", list)
	}
	if list[0].ExtractedText != "" {
		t.Fatalf("list should omit extracted text")
	}

	owned, err := docs.FilterOwnedIDs(alice.ID, []uint{older.ID, foreign.ID})
	if err != nil || len(owned) != 1 || owned[0] != older.ID {
		t.Fatalf("FilterOwnedIDs: %v %v", owned, err)
	}

	if got, _ := docs.GetByIDAndOwnerID(foreign.ID, alice.ID); got != nil {
		t.Fatalf("alice must not see bob's document")
	}

	batch := []model.DocumentChunk{
		{DocumentID: older.ID, Ordinal: 1, Content: "second"},
		{DocumentID: older.ID, Ordinal: 0, Content: "first"},
	}
	if err := chunks.CreateBatch(batch); err != nil {
		t.Fatalf("create chunks: %v", err)
	}
	listed, err := chunks.ListByDocumentIDs([]uint{older.ID})
	if err != nil || len(listed) != 2 || listed[0].Content != "first" {
		t.Fatalf("chunks not ordered by ordinal: %+v %v", listed, err)
	}
	if err := chunks.DeleteByDocumentID(older.ID); err != nil {
		t.Fatalf("delete chunks: %v", err)
	}
	if n, _ := chunks.CountByDocumentID(older.ID); n != 0 {
		t.Fatalf("expected chunks deleted, %d left", n)
	}
	if err := docs.DeleteByIDAndOwnerID(older.ID, alice.ID); err != nil {
		t.Fatalf("delete doc: %v", err)
	}
	ids, _ := docs.ListIDsByOwnerID(alice.ID)
	if len(ids) != 1 || ids[0] != newer.ID {
		t.Fatalf("unexpected remaining ids %v", ids)
	}
}

func TestChatRepositories(t *testing.T) {
	db := database.NewTestDB(t)
	sessions := NewChatSessionRepository(db)
	messages := NewChatMessageRepository(db)
	alice := createUser(t, db, "alice")

	session := &model.ChatSession{UserID: alice.ID}
	if err := sessions.Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	base := time.Now().Add(-time.Minute)
	for i, content := range []string{"one", "two", "three"} {
		msg := &model.ChatMessage{SessionID: session.ID, Sender: model.SenderUser, Content: content, Timestamp: base.Add(time.Duration(i) * time.Second)}
		if err := messages.Create(msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	recent, err := messages.ListBySessionID(session.ID, 2)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Fatalf("expected last two messages in order, got %+v", recent)
	}

	if got, _ := sessions.GetByIDAndUserID(session.ID, alice.ID+1); got != nil {
		t.Fatalf("session must be scoped to its user")
	}
	if err := messages.DeleteBySessionID(session.ID); err != nil {
		t.Fatalf("delete messages: %v", err)
	}
	if err := sessions.DeleteByIDAndUserID(session.ID, alice.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	list, _ := sessions.ListByUserID(alice.ID)
	if len(list) != 0 {
		t.Fatalf("expected no sessions, got %d", len(list))
	}
}
