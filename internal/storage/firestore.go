package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/atelierline/storefront/internal/crypto"
	"github.com/atelierline/storefront/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStorage implements the session store on Google Cloud Firestore,
// for deployments where carts and logins must survive instance restarts.
//
// Handshakes stay in process memory even here: they live for minutes, are
// bound to one browser's redirect round trip, and the state cookie provides
// the cross-restart redundancy. Sessions and carts go to Firestore with
// tokens encrypted at rest.
//
// Error handling strategy:
// - Read operations return errors (missing data must surface as logged-out
//   or empty-cart, decided by the caller)
// - Decode failures are treated as corrupt data: the document is deleted
//   and the record reported as not found
type FirestoreStorage struct {
	client     *firestore.Client
	handshakes sync.Map // map[string]Handshake
	encryptor  crypto.Encryptor

	sessionCollection string
	cartCollection    string
}

// Ensure FirestoreStorage implements the Storage interface
var _ Storage = (*FirestoreStorage)(nil)

// sessionDoc is the Firestore shape of a CustomerSession. Token fields hold
// encrypted values.
type sessionDoc struct {
	AccessToken  string    `firestore:"access_token"`
	RefreshToken string    `firestore:"refresh_token,omitempty"`
	ExpiresAt    time.Time `firestore:"expires_at"`
	CreatedAt    time.Time `firestore:"created_at"`

	ProfileID        string `firestore:"profile_id,omitempty"`
	ProfileEmail     string `firestore:"profile_email,omitempty"`
	ProfileFirstName string `firestore:"profile_first_name,omitempty"`
	ProfileLastName  string `firestore:"profile_last_name,omitempty"`
}

// cartDoc is the Firestore shape of a CartRecord
type cartDoc struct {
	Lines     []cartLineDoc `firestore:"lines"`
	Open      bool          `firestore:"open"`
	UpdatedAt time.Time     `firestore:"updated_at"`
}

type cartLineDoc struct {
	ID           string  `firestore:"id"`
	Name         string  `firestore:"name"`
	UnitPrice    float64 `firestore:"unit_price"`
	Quantity     int     `firestore:"quantity"`
	ImageURL     string  `firestore:"image_url,omitempty"`
	VariantTitle string  `firestore:"variant_title,omitempty"`
	Href         string  `firestore:"href,omitempty"`
}

// NewFirestoreStorage creates a Firestore-backed session store
func NewFirestoreStorage(ctx context.Context, projectID, database, collectionPrefix, credentialsFile string, encryptor crypto.Encryptor) (*FirestoreStorage, error) {
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collectionPrefix == "" {
		collectionPrefix = "storefront"
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var client *firestore.Client
	var err error
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database, opts...)
	} else {
		client, err = firestore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStorage{
		client:            client,
		encryptor:         encryptor,
		sessionCollection: collectionPrefix + "_sessions",
		cartCollection:    collectionPrefix + "_carts",
	}, nil
}

func (s *FirestoreStorage) StoreHandshake(_ context.Context, id string, hs Handshake) error {
	if id == "" {
		return fmt.Errorf("handshake id cannot be empty")
	}
	s.handshakes.Store(id, hs)
	return nil
}

func (s *FirestoreStorage) ConsumeHandshake(_ context.Context, id string) (*Handshake, error) {
	value, ok := s.handshakes.LoadAndDelete(id)
	if !ok {
		return nil, ErrHandshakeNotFound
	}
	hs := value.(Handshake)
	if time.Now().After(hs.ExpiresAt) {
		return nil, ErrHandshakeNotFound
	}
	return &hs, nil
}

func (s *FirestoreStorage) GetSession(ctx context.Context, id string) (*CustomerSession, error) {
	snap, err := s.client.Collection(s.sessionCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		log.LogWarnWithFields("storage", "Deleting corrupt session document", map[string]any{
			"error": err.Error(),
		})
		s.deleteDoc(ctx, s.sessionCollection, id)
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionFromDoc(&doc)
	if err != nil {
		log.LogWarnWithFields("storage", "Deleting undecryptable session document", map[string]any{
			"error": err.Error(),
		})
		s.deleteDoc(ctx, s.sessionCollection, id)
		return nil, ErrSessionNotFound
	}

	if session.Expired() {
		s.deleteDoc(ctx, s.sessionCollection, id)
		return nil, ErrSessionNotFound
	}

	return session, nil
}

func (s *FirestoreStorage) PutSession(ctx context.Context, id string, session *CustomerSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	doc, err := s.sessionToDoc(session)
	if err != nil {
		return fmt.Errorf("encrypting session: %w", err)
	}

	if _, err := s.client.Collection(s.sessionCollection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.sessionCollection).Doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) GetCart(ctx context.Context, id string) (*CartRecord, error) {
	snap, err := s.client.Collection(s.cartCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("getting cart: %w", err)
	}

	var doc cartDoc
	if err := snap.DataTo(&doc); err != nil {
		log.LogWarnWithFields("storage", "Deleting corrupt cart document", map[string]any{
			"error": err.Error(),
		})
		s.deleteDoc(ctx, s.cartCollection, id)
		return nil, ErrCartNotFound
	}

	record := &CartRecord{Open: doc.Open, UpdatedAt: doc.UpdatedAt}
	for _, line := range doc.Lines {
		record.Lines = append(record.Lines, CartLine(line))
	}
	return record, nil
}

func (s *FirestoreStorage) PutCart(ctx context.Context, id string, cart *CartRecord) error {
	if cart == nil {
		return fmt.Errorf("cart cannot be nil")
	}

	doc := cartDoc{Open: cart.Open, UpdatedAt: cart.UpdatedAt}
	for _, line := range cart.Lines {
		doc.Lines = append(doc.Lines, cartLineDoc(line))
	}

	if _, err := s.client.Collection(s.cartCollection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("storing cart: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) DeleteCart(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.cartCollection).Doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}

// CleanupExpired removes expired handshakes from memory and expired sessions
// from Firestore
func (s *FirestoreStorage) CleanupExpired(ctx context.Context) (int, error) {
	removed := 0
	now := time.Now()

	s.handshakes.Range(func(key, value any) bool {
		if now.After(value.(Handshake).ExpiresAt) {
			s.handshakes.Delete(key)
			removed++
		}
		return true
	})

	iter := s.client.Collection(s.sessionCollection).
		Where("expires_at", "<", now).
		Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("listing expired sessions: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
			log.LogWarnWithFields("storage", "Failed to delete expired session", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		removed++
	}

	return removed, nil
}

func (s *FirestoreStorage) Stats(ctx context.Context) (Stats, error) {
	handshakes := 0
	s.handshakes.Range(func(_, _ any) bool {
		handshakes++
		return true
	})

	sessions, err := s.countCollection(ctx, s.sessionCollection)
	if err != nil {
		return Stats{}, err
	}
	carts, err := s.countCollection(ctx, s.cartCollection)
	if err != nil {
		return Stats{}, err
	}

	return Stats{Sessions: sessions, Carts: carts, Handshakes: handshakes}, nil
}

func (s *FirestoreStorage) Close() error {
	return s.client.Close()
}

func (s *FirestoreStorage) countCollection(ctx context.Context, collection string) (int, error) {
	count := 0
	iter := s.client.Collection(collection).Select().Documents(ctx)
	defer iter.Stop()
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("counting %s: %w", collection, err)
		}
		count++
	}
}

// deleteDoc removes a document, logging rather than failing: it only runs on
// records already decided to be unusable
func (s *FirestoreStorage) deleteDoc(ctx context.Context, collection, id string) {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		log.LogWarnWithFields("storage", "Failed to delete document", map[string]any{
			"collection": collection,
			"error":      err.Error(),
		})
	}
}

func (s *FirestoreStorage) sessionToDoc(session *CustomerSession) (*sessionDoc, error) {
	accessToken, err := s.encryptor.Encrypt(session.AccessToken)
	if err != nil {
		return nil, err
	}

	doc := &sessionDoc{
		AccessToken: accessToken,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
	}

	if session.RefreshToken != "" {
		refreshToken, err := s.encryptor.Encrypt(session.RefreshToken)
		if err != nil {
			return nil, err
		}
		doc.RefreshToken = refreshToken
	}

	if p := session.Profile; p != nil {
		doc.ProfileID = p.ID
		doc.ProfileEmail = p.Email
		doc.ProfileFirstName = p.FirstName
		doc.ProfileLastName = p.LastName
	}

	return doc, nil
}

func (s *FirestoreStorage) sessionFromDoc(doc *sessionDoc) (*CustomerSession, error) {
	accessToken, err := s.encryptor.Decrypt(doc.AccessToken)
	if err != nil {
		return nil, err
	}

	session := &CustomerSession{
		AccessToken: accessToken,
		ExpiresAt:   doc.ExpiresAt,
		CreatedAt:   doc.CreatedAt,
	}

	if doc.RefreshToken != "" {
		refreshToken, err := s.encryptor.Decrypt(doc.RefreshToken)
		if err != nil {
			return nil, err
		}
		session.RefreshToken = refreshToken
	}

	if doc.ProfileID != "" || doc.ProfileEmail != "" {
		session.Profile = &CustomerProfile{
			ID:        doc.ProfileID,
			Email:     doc.ProfileEmail,
			FirstName: doc.ProfileFirstName,
			LastName:  doc.ProfileLastName,
		}
	}

	return session, nil
}
