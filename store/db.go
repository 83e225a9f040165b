package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-json-experiment/json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
	"github.com/foyerspace/foyer/internal/seal"
)

// DBOption configures a DB store.
type DBOption func(*DB)

// WithPassphrase seals stored tokens at rest. Once a credential has
// been saved under a passphrase, Load needs the same passphrase back.
func WithPassphrase(passphrase string) DBOption {
	return func(d *DB) { d.passphrase = passphrase }
}

// WithLogger sets the logger for directory write failures. The default
// is slog.Default().
func WithLogger(log *slog.Logger) DBOption {
	return func(d *DB) { d.log = log }
}

// DB keeps the store in a sqlite database so the session survives
// restarts.
type DB struct {
	db         *gorm.DB
	passphrase string
	log        *slog.Logger
}

// credential is a saved login, one row per home server.
type credential struct {
	HomeServer string `gorm:"size:255;primaryKey;autoIncrement:false"`
	UpdatedAt  time.Time
	Token      []byte `gorm:"not null"`
	Sealed     bool   `gorm:"not null"`
	Salt       []byte `gorm:"size:16"`
	ActorID    string `gorm:"size:255"`
	Scopes     string `gorm:"size:255"`
}

// handle maps a user@host handle to the actor it resolved to.
type handle struct {
	Handle    string `gorm:"size:255;primaryKey;autoIncrement:false"`
	UpdatedAt time.Time
	ActorID   string `gorm:"size:255;not null"`
}

// actor caches a fetched actor document as activity+json.
type actor struct {
	ID        string `gorm:"size:255;primaryKey;autoIncrement:false"`
	UpdatedAt time.Time
	Doc       []byte `gorm:"not null"`
}

// node records what software a server origin runs.
type node struct {
	Origin    string `gorm:"size:255;primaryKey;autoIncrement:false"`
	UpdatedAt time.Time
	Software  string `gorm:"size:64"`
	Version   string `gorm:"size:64"`
}

func allTables() []any {
	return []any{&credential{}, &handle{}, &actor{}, &node{}}
}

// OpenDB opens the sqlite store at path, creating and migrating it as
// needed.
func OpenDB(path string, opts ...DBOption) (*DB, error) {
	d := &DB{log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if err := db.AutoMigrate(allTables()...); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	d.db = db
	return d, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *DB) Load(ctx context.Context) (client.Credential, bool, error) {
	var row credential
	err := d.db.WithContext(ctx).Order("updated_at desc").First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return client.Credential{}, false, nil
	case err != nil:
		return client.Credential{}, false, err
	}
	token := row.Token
	if row.Sealed {
		if d.passphrase == "" {
			return client.Credential{}, false, errors.New("stored credential is sealed: passphrase required")
		}
		key, err := seal.DeriveKey(d.passphrase, row.Salt)
		if err != nil {
			return client.Credential{}, false, err
		}
		if token, err = seal.Open(key, row.Token); err != nil {
			return client.Credential{}, false, fmt.Errorf("unsealing stored credential: %w", err)
		}
	}
	cred := client.Credential{
		Token:      string(token),
		HomeServer: row.HomeServer,
		ActorID:    row.ActorID,
		Scopes:     client.ParseScopes(row.Scopes),
	}
	return cred, true, nil
}

func (d *DB) Save(ctx context.Context, cred client.Credential) error {
	if cred.Token == "" || cred.HomeServer == "" {
		return errors.New("credential missing token or home server")
	}
	row := credential{
		HomeServer: cred.HomeServer,
		Token:      []byte(cred.Token),
		ActorID:    cred.ActorID,
		Scopes:     client.ScopeString(cred.Scopes),
	}
	if d.passphrase != "" {
		salt, err := seal.NewSalt()
		if err != nil {
			return err
		}
		key, err := seal.DeriveKey(d.passphrase, salt)
		if err != nil {
			return err
		}
		sealed, err := seal.Seal(key, []byte(cred.Token))
		if err != nil {
			return err
		}
		row.Token, row.Salt, row.Sealed = sealed, salt, true
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (d *DB) Clear(ctx context.Context) error {
	return d.db.WithContext(ctx).Where("1 = 1").Delete(&credential{}).Error
}

func (d *DB) ActorID(ctx context.Context, h string) (string, bool) {
	var row handle
	err := d.db.WithContext(ctx).First(&row, "handle = ?", h).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false
	case err != nil:
		d.log.Warn("reading handle cache", "handle", h, "error", err)
		return "", false
	}
	return row.ActorID, true
}

func (d *DB) SetActorID(ctx context.Context, h, actorID string) {
	if h == "" || actorID == "" {
		return
	}
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&handle{Handle: h, ActorID: actorID}).Error
	if err != nil {
		d.log.Warn("caching handle", "handle", h, "error", err)
	}
}

func (d *DB) Actor(ctx context.Context, actorID string) (*activity.Actor, bool) {
	var row actor
	err := d.db.WithContext(ctx).First(&row, "id = ?", actorID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false
	case err != nil:
		d.log.Warn("reading actor cache", "id", actorID, "error", err)
		return nil, false
	}
	var doc activity.Actor
	if err := json.Unmarshal(row.Doc, &doc); err != nil {
		d.log.Warn("decoding cached actor", "id", actorID, "error", err)
		return nil, false
	}
	return &doc, true
}

func (d *DB) SetActor(ctx context.Context, a *activity.Actor) {
	if a == nil || a.ID == "" {
		return
	}
	doc, err := json.Marshal(a)
	if err != nil {
		d.log.Warn("encoding actor for cache", "id", a.ID, "error", err)
		return
	}
	err = d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&actor{ID: a.ID, Doc: doc}).Error
	if err != nil {
		d.log.Warn("caching actor", "id", a.ID, "error", err)
	}
}

func (d *DB) Node(ctx context.Context, origin string) (Node, bool) {
	var row node
	err := d.db.WithContext(ctx).First(&row, "origin = ?", origin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Node{}, false
	case err != nil:
		d.log.Warn("reading node cache", "origin", origin, "error", err)
		return Node{}, false
	}
	return Node{Origin: row.Origin, Software: row.Software, Version: row.Version}, true
}

func (d *DB) SetNode(ctx context.Context, n Node) {
	if n.Origin == "" {
		return
	}
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&node{Origin: n.Origin, Software: n.Software, Version: n.Version}).Error
	if err != nil {
		d.log.Warn("caching node", "origin", n.Origin, "error", err)
	}
}
