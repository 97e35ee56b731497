package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type VAPIDKey struct {
	ID      uint
	Public  string
	Private string
}

// PushSubscription is a browser registered for alignment notifications.
type PushSubscription struct {
	gorm.Model

	Peer string

	Endpoint         string `gorm:"uniqueIndex;size:512"`
	SubscriptionJSON string `gorm:"type:text"`

	LastSuccess        *time.Time
	LastFailure        *time.Time
	LastFailureMessage string
}

// WebPush delivers notifications to subscribed browsers.
type WebPush struct {
	// Key is generated on first start and persisted in the database.
	Key *VAPIDKey

	// Subscriber is the contact address given to push services.
	Subscriber string

	db *gorm.DB
}

func NewWebPush(db *gorm.DB, subscriber string) (*WebPush, error) {
	if err := db.AutoMigrate(&VAPIDKey{}, &PushSubscription{}); err != nil {
		return nil, err
	}

	p := &WebPush{
		Key:        &VAPIDKey{},
		Subscriber: subscriber,
		db:         db,
	}
	if err := db.First(p.Key).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, err
		}
		p.Key.Private = priv
		p.Key.Public = pub
		if err := db.Create(p.Key).Error; err != nil {
			return nil, err
		}
		log.Infof("Web push VAPID keys generated")
	} else if err != nil {
		return nil, err
	} else {
		log.Infof("Web push VAPID keys loaded from database")
	}
	return p, nil
}

func (p *WebPush) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/push_get_pubkey", p.handleGetPubkey)
	mux.HandleFunc("/push_subscribe", p.handleSubscribe)
	mux.HandleFunc("/push_unsubscribe", p.handleUnsubscribe)
}

func (p *WebPush) handleGetPubkey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, p.Key.Public)
}

func decodeSubscription(w http.ResponseWriter, r *http.Request) *webpush.Subscription {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return nil
	}
	sub := &webpush.Subscription{}
	if err := json.NewDecoder(r.Body).Decode(sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if sub.Endpoint == "" {
		http.Error(w, "missing endpoint", http.StatusBadRequest)
		return nil
	}
	return sub
}

func (p *WebPush) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	sub := decodeSubscription(w, r)
	if sub == nil {
		return
	}
	jb, _ := json.Marshal(sub)
	ps := &PushSubscription{
		Peer:             r.RemoteAddr,
		Endpoint:         sub.Endpoint,
		SubscriptionJSON: string(jb),
	}
	if err := p.db.Create(ps).Error; err != nil {
		log.Errorf("Failed to create push subscription: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Infof("Added push subscription for peer %v", ps.Peer)
}

func (p *WebPush) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	sub := decodeSubscription(w, r)
	if sub == nil {
		return
	}
	ps := &PushSubscription{}
	if err := p.db.Where("endpoint = ?", sub.Endpoint).First(ps).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "subscription not found", http.StatusNotFound)
		return
	}
	if err := p.db.Delete(ps).Error; err != nil {
		log.Errorf("Failed to delete push subscription: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Infof("Removed push subscription for peer %v", ps.Peer)
}

func (p *WebPush) notifyOne(ps *PushSubscription, payload []byte) error {
	var sub webpush.Subscription
	if err := json.NewDecoder(strings.NewReader(ps.SubscriptionJSON)).Decode(&sub); err != nil {
		return err
	}

	resp, err := webpush.SendNotification(payload, &sub, &webpush.Options{
		Subscriber:      p.Subscriber,
		VAPIDPublicKey:  p.Key.Public,
		VAPIDPrivateKey: p.Key.Private,
		TTL:             60,
		Urgency:         webpush.UrgencyHigh,
		Topic:           "hole_aligned",
	})
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			log.Infof("Push service reports status %v, deleting subscription", resp.Status)
			return p.db.Delete(ps).Error
		}
	}

	now := time.Now()
	if err != nil {
		log.Warnf("Web push to client failed: %v", err)
		ps.LastFailure = &now
		ps.LastFailureMessage = err.Error()
	} else {
		ps.LastSuccess = &now
	}
	return p.db.Save(ps).Error
}

func (p *WebPush) Notify(n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	var subs []*PushSubscription
	if err := p.db.Find(&subs).Error; err != nil {
		return err
	}

	log.Infof("Sending web push notification to %d subscribers", len(subs))
	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(ps *PushSubscription) {
			defer wg.Done()
			if err := p.notifyOne(ps, payload); err != nil {
				log.Errorf("Web push notify failed: %v", err)
			}
		}(s)
	}
	wg.Wait()
	return nil
}
