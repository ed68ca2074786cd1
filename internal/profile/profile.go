// Package profile owns the signed-in user's location and the shared user
// map built from everyone who has reported one.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/feed"
	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/metrics"
	"github.com/joestump/frequency/internal/projection"
	"github.com/joestump/frequency/internal/store"
)

var errNoLocation = fmt.Errorf("%w: no location reported", store.ErrNotFound)

// mapKey is the cache key for the user map. The map is the same for every
// viewer.
const mapKey = "*"

// Feature property keys on the user map.
const (
	PropUserID      = "user_id"
	PropDisplayName = "display_name"
	PropAvatarURL   = "avatar_url"
	PropSelf        = "self"
)

type Service struct {
	users  *store.UserStore
	reader *catalog.Reader
	feed   feed.Feed
	cache  *projection.Cache[[]*store.User]
	logger *log.Logger
}

func NewService(us *store.UserStore, reader *catalog.Reader, f feed.Feed, logger *log.Logger) *Service {
	return &Service{
		users:  us,
		reader: reader,
		feed:   f,
		cache:  projection.NewCache[[]*store.User](),
		logger: logger.WithPrefix("profile"),
	}
}

// Me returns self's profile.
func (s *Service) Me(ctx context.Context, self string) (*store.User, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, self)
}

// UpdateLocation records self's current coordinates and announces the
// change to every map viewer.
func (s *Service) UpdateLocation(ctx context.Context, self string, lat, lon float64) (*store.User, error) {
	if err := identity.Check(self); err != nil {
		return nil, err
	}
	u, err := s.users.UpdateLocation(ctx, self, lat, lon)
	if err != nil {
		return nil, err
	}
	// No user ids: the map is global, so every viewer refreshes.
	if err := s.feed.Publish(ctx, feed.New(feed.TableProfiles, feed.OpUpdate, self)); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("publishing location change", "user", self, "err", err)
	}
	return u, nil
}

// NearestRegion resolves the region closest to self's last reported
// location. It fails with store.ErrNotFound when self has no location or no
// region has coordinates.
func (s *Service) NearestRegion(ctx context.Context, self string) (catalog.NearestMatch, error) {
	u, err := s.Me(ctx, self)
	if err != nil {
		return catalog.NearestMatch{}, err
	}
	lat, lon, ok := u.Location()
	if !ok {
		return catalog.NearestMatch{}, errNoLocation
	}
	m, ok, err := s.reader.NearestRegion(ctx, lat, lon)
	if err != nil {
		return catalog.NearestMatch{}, err
	}
	if !ok {
		return catalog.NearestMatch{}, fmt.Errorf("%w: no region has coordinates", store.ErrNotFound)
	}
	return m, nil
}

// Locations returns every located user as GeoJSON, with self's own point
// flagged. A failed refresh after an earlier success returns the previous
// map along with the error.
func (s *Service) Locations(ctx context.Context, self string) (*geojson.FeatureCollection, error) {
	if err := identity.Check(self); err != nil {
		return geojson.NewFeatureCollection(), err
	}
	users, ok, err := s.cache.Load(ctx, mapKey, func(ctx context.Context) ([]*store.User, error) {
		start := time.Now()
		defer func() {
			metrics.SnapshotDuration.WithLabelValues("locations").Observe(time.Since(start).Seconds())
		}()
		return s.users.ListWithLocation(ctx)
	})
	if !ok {
		return geojson.NewFeatureCollection(), err
	}
	return Collect(users, self), err
}

// Watch sends the user map to fn once, then after every profile change,
// until ctx ends.
func (s *Service) Watch(ctx context.Context, self string, fn func(*geojson.FeatureCollection, error)) error {
	if err := identity.Check(self); err != nil {
		return err
	}
	return projection.Watch(ctx, s.feed, self, []string{feed.TableProfiles},
		func(ctx context.Context) (*geojson.FeatureCollection, error) { return s.Locations(ctx, self) }, fn)
}

// Collect builds a feature collection from users, skipping any without
// coordinates. Points are longitude first.
func Collect(users []*store.User, self string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, u := range users {
		lat, lon, ok := u.Location()
		if !ok {
			continue
		}
		f := geojson.NewFeature(orb.Point{lon, lat})
		f.Properties[PropUserID] = u.ID
		f.Properties[PropDisplayName] = u.DisplayName
		if u.AvatarURL.Valid && u.AvatarURL.String != "" {
			f.Properties[PropAvatarURL] = u.AvatarURL.String
		}
		f.Properties[PropSelf] = u.ID == self
		fc.Append(f)
	}
	return fc
}
