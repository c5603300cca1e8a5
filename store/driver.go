package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// InstanceSetting model related methods.
	UpsertInstanceSetting(ctx context.Context, upsert *InstanceSetting) (*InstanceSetting, error)
	GetInstanceSetting(ctx context.Context, key string) (*InstanceSetting, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)

	// LoginCode model related methods.
	UpsertLoginCode(ctx context.Context, upsert *LoginCode) error
	GetLoginCode(ctx context.Context, userID int32) (*LoginCode, error)
	DeleteLoginCode(ctx context.Context, userID int32) error

	// Photo model related methods.
	CreatePhoto(ctx context.Context, create *Photo) (*Photo, error)
	ListPhotos(ctx context.Context, find *FindPhoto) ([]*Photo, error)
	UpdatePhoto(ctx context.Context, update *UpdatePhoto) error
	DeletePhoto(ctx context.Context, delete *DeletePhoto) error

	// Note model related methods.
	CreateNote(ctx context.Context, create *Note) (*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)
	UpdateNote(ctx context.Context, update *UpdateNote) error
	DeleteNote(ctx context.Context, delete *DeleteNote) error

	// PhotoEmbedding model related methods.
	UpsertPhotoEmbedding(ctx context.Context, embedding *PhotoEmbedding) (*PhotoEmbedding, error)
	ListPhotoEmbeddings(ctx context.Context, find *FindPhotoEmbedding) ([]*PhotoEmbedding, error)
	DeletePhotoEmbedding(ctx context.Context, photoID int32) error
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*PhotoWithScore, error)
}
