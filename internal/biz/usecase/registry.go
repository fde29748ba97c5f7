package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// recordJob is one deferred contact write.
type recordJob struct {
	jid  string
	name string
}

// RegistryUsecase classifies senders into Owner / Special / Ordinary and
// owns the promotion rules. Owner membership is static configuration;
// Special is the union of the configured list, the mirrored seed list and
// the mutable contact document.
type RegistryUsecase struct {
	contacts repo.ContactRepo
	owners   map[string]bool
	special  map[string]bool
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger

	// Inbound contact writes are deferred through a bounded queue so the
	// hot classification path never blocks on disk.
	queue chan recordJob
	wg    sync.WaitGroup
	once  sync.Once
}

// NewRegistry creates a new contact registry.
func NewRegistry(contacts repo.ContactRepo, owners, special []string, loc *time.Location, log zerolog.Logger) *RegistryUsecase {
	u := &RegistryUsecase{
		contacts: contacts,
		owners:   make(map[string]bool, len(owners)),
		special:  make(map[string]bool, len(special)),
		loc:      loc,
		now:      time.Now,
		log:      log.With().Str("component", "registry").Logger(),
		queue:    make(chan recordJob, 256),
	}
	for _, jid := range owners {
		u.owners[domain.FormatJID(jid)] = true
	}
	for _, jid := range special {
		u.special[domain.FormatJID(jid)] = true
	}
	return u
}

// Start launches the deferred-write worker. Stop drains it.
func (u *RegistryUsecase) Start(ctx context.Context) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		for {
			select {
			case job, ok := <-u.queue:
				if !ok {
					return
				}
				u.record(ctx, job)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop closes the queue and waits for pending writes.
func (u *RegistryUsecase) Stop() {
	u.once.Do(func() { close(u.queue) })
	u.wg.Wait()
}

// Classify resolves the privilege tier for an address. Owner never changes
// at runtime; Special is resolved against configuration and the document.
func (u *RegistryUsecase) Classify(ctx context.Context, jid string) (domain.Classification, error) {
	cls := domain.Classification{IsOwner: u.owners[jid]}
	if cls.IsOwner {
		return cls, nil
	}
	if u.special[jid] {
		cls.IsSpecial = true
		return cls, nil
	}

	seed, err := u.contacts.SeedSpecial(ctx)
	if err != nil {
		return cls, err
	}
	for _, s := range seed {
		if s == jid {
			cls.IsSpecial = true
			return cls, nil
		}
	}

	book, err := u.contacts.Book(ctx)
	if err != nil {
		return cls, err
	}
	cls.IsSpecial = book.HasSpecial(jid)
	return cls, nil
}

// RecordInbound queues an ordinary-contact write for a first-seen private
// sender. Fire-and-forget: a full queue drops the job (the next message
// from the same sender will retry).
func (u *RegistryUsecase) RecordInbound(jid, name string) {
	select {
	case u.queue <- recordJob{jid: jid, name: name}:
	default:
		u.log.Warn().Str("jid", jid).Msg("record queue full, dropping")
	}
}

func (u *RegistryUsecase) record(ctx context.Context, job recordJob) {
	if u.owners[job.jid] {
		return
	}

	book, err := u.contacts.Book(ctx)
	if err != nil {
		u.log.Error().Err(err).Msg("contact book load failed")
		return
	}

	changed := false
	if u.special[job.jid] {
		// Configured specials are mirrored into the document so listsp
		// and the broadcast audience see them.
		changed = book.PromoteSpecial(domain.Contact{JID: job.jid, Name: job.name, FirstSeen: u.now()})
	} else {
		changed = book.AddOrdinary(domain.Contact{JID: job.jid, Name: job.name, FirstSeen: u.now()})
	}
	if !changed {
		return
	}
	if err := u.contacts.SaveBook(ctx, book); err != nil {
		u.log.Error().Err(err).Msg("contact book save failed")
		return
	}
	u.log.Debug().Str("jid", job.jid).Str("name", job.name).Msg("contact recorded")
}

// Promote moves an address to the special list when the operator initiates
// outbound contact. Returns false without mutating anything when the
// daytime window or the hourly/daily quota forbids it, or when the address
// is an owner or already special.
func (u *RegistryUsecase) Promote(ctx context.Context, jid, name string) (bool, error) {
	if u.owners[jid] {
		return false, nil
	}

	cls, err := u.Classify(ctx, jid)
	if err != nil {
		return false, err
	}
	if cls.IsSpecial {
		return false, nil
	}

	ok, err := u.contacts.ConsumePromotionQuota(ctx, u.now().In(u.loc))
	if err != nil {
		return false, err
	}
	if !ok {
		u.log.Debug().Str("jid", jid).Msg("promotion denied: quota or window")
		return false, nil
	}

	book, err := u.contacts.Book(ctx)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = "Unknown"
	}
	if !book.PromoteSpecial(domain.Contact{JID: jid, Name: name, FirstSeen: u.now()}) {
		return false, nil
	}
	if err := u.contacts.SaveBook(ctx, book); err != nil {
		return false, err
	}
	if err := u.contacts.MirrorSpecial(ctx, jid); err != nil {
		u.log.Error().Err(err).Str("jid", jid).Msg("seed mirror failed")
	}
	u.log.Info().Str("jid", jid).Str("name", name).Msg("promoted to special")
	return true, nil
}

// SetSpecial force-adds an address to the special list (admin command;
// bypasses the promotion quota).
func (u *RegistryUsecase) SetSpecial(ctx context.Context, jid, name string) error {
	book, err := u.contacts.Book(ctx)
	if err != nil {
		return err
	}
	if !book.PromoteSpecial(domain.Contact{JID: jid, Name: name, FirstSeen: u.now()}) {
		return nil
	}
	if err := u.contacts.SaveBook(ctx, book); err != nil {
		return err
	}
	return u.contacts.MirrorSpecial(ctx, jid)
}

// RemoveSpecial demotes an address back to ordinary.
func (u *RegistryUsecase) RemoveSpecial(ctx context.Context, jid string) (bool, error) {
	book, err := u.contacts.Book(ctx)
	if err != nil {
		return false, err
	}
	if !book.DemoteSpecial(jid) {
		return false, nil
	}
	return true, u.contacts.SaveBook(ctx, book)
}

// ListSpecial returns the special contacts from the document.
func (u *RegistryUsecase) ListSpecial(ctx context.Context) ([]domain.Contact, error) {
	book, err := u.contacts.Book(ctx)
	if err != nil {
		return nil, err
	}
	return book.Special, nil
}

// Audience resolves a broadcast audience from the registry.
func (u *RegistryUsecase) Audience(ctx context.Context, a domain.Audience) ([]domain.Contact, error) {
	book, err := u.contacts.Book(ctx)
	if err != nil {
		return nil, err
	}
	if a == domain.AudienceSpecial {
		return book.Special, nil
	}
	var targets []domain.Contact
	for _, c := range book.Ordinary {
		if c.ReceiveGreetings {
			targets = append(targets, c)
		}
	}
	return targets, nil
}
