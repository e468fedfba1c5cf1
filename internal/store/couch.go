package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/go-kivik/kivik/v4"
)

const docPrefix = "brew:"

// couchBrew is the stored form of a document.
type couchBrew struct {
	ID   string `json:"_id"`
	Rev  string `json:"_rev,omitempty"`
	Type string `json:"type"`
	brew.Document
	UpdatedAt time.Time `json:"updated_at"`
}

// Couch is a Store backed by a CouchDB database.
type Couch struct {
	client *kivik.Client
	dbName string
}

// NewCouch connects to CouchDB at url and creates dbName if it does not
// exist. The couchdb driver must be registered by the caller.
func NewCouch(ctx context.Context, url, dbName string) (*Couch, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("connect couchdb: %w", err)
	}

	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check database %s: %w", dbName, err)
	}
	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil && kivik.HTTPStatus(err) != http.StatusPreconditionFailed {
			_ = client.Close()
			return nil, fmt.Errorf("create database %s: %w", dbName, err)
		}
	}
	return &Couch{client: client, dbName: dbName}, nil
}

func (c *Couch) Get(ctx context.Context, shareID string) (brew.Document, error) {
	var stored couchBrew
	if err := c.client.DB(c.dbName).Get(ctx, docPrefix+shareID).ScanDoc(&stored); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return brew.Document{}, ErrNotFound
		}
		return brew.Document{}, fmt.Errorf("get brew %s: %w", shareID, err)
	}
	return stored.Document, nil
}

// Put creates or replaces the document, carrying over the current revision.
func (c *Couch) Put(ctx context.Context, doc brew.Document) error {
	if doc.ShareID == "" {
		return fmt.Errorf("put brew: share id is required")
	}
	db := c.client.DB(c.dbName)
	id := docPrefix + doc.ShareID

	var current struct {
		Rev string `json:"_rev"`
	}
	if err := db.Get(ctx, id).ScanDoc(&current); err != nil && kivik.HTTPStatus(err) != http.StatusNotFound {
		return fmt.Errorf("fetch brew %s revision: %w", doc.ShareID, err)
	}

	stored := couchBrew{
		ID:        id,
		Rev:       current.Rev,
		Type:      "brew",
		Document:  doc,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := db.Put(ctx, id, stored); err != nil {
		return fmt.Errorf("put brew %s: %w", doc.ShareID, err)
	}
	return nil
}

func (c *Couch) Delete(ctx context.Context, shareID string) error {
	db := c.client.DB(c.dbName)
	id := docPrefix + shareID

	var current struct {
		Rev string `json:"_rev"`
	}
	if err := db.Get(ctx, id).ScanDoc(&current); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("fetch brew %s revision: %w", shareID, err)
	}
	if _, err := db.Delete(ctx, id, current.Rev); err != nil {
		return fmt.Errorf("delete brew %s: %w", shareID, err)
	}
	return nil
}

func (c *Couch) Close() error {
	return c.client.Close()
}
