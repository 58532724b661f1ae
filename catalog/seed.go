package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	DemoUsername = "admin"
	DemoPassword = "admin123"
)

type seedEntry struct {
	entry    Entry
	features []Feature
}

var sampleEntries = []seedEntry{
	{Entry{Name: "PUBG Mobile", Description: "Unlocked skins, unlimited UC, and aimbot features.", Version: "1.5.0", Category: CategoryGames, Size: "150MB", FileName: "pubg_mobile_mod.apk", Rating: 48, Downloads: 15000, IsFeatured: true, IsTrending: true},
		[]Feature{FeatureNoAds, FeatureAntiBan, FeatureUnlimitedResources}},
	{Entry{Name: "Spotify Premium", Description: "Unlimited skips, offline downloads, and high quality audio.", Version: "8.7.5", Category: CategoryMusicAudio, Size: "85MB", FileName: "spotify_premium_mod.apk", Rating: 49, Downloads: 25000, IsTrending: true},
		[]Feature{FeatureNoAds, FeaturePremium}},
	{Entry{Name: "Adobe Lightroom Pro", Description: "All premium features unlocked, no subscription needed.", Version: "6.4.0", Category: CategoryUtilities, Size: "112MB", FileName: "adobe_lightroom_mod.apk", Rating: 42, Downloads: 9800, IsTrending: true},
		[]Feature{FeaturePremium, FeatureProFeatures}},
	{Entry{Name: "Minecraft PE", Description: "God mode, unlimited resources, and all skins unlocked.", Version: "1.19.2", Category: CategoryGames, Size: "175MB", FileName: "minecraft_pe_mod.apk", Rating: 47, Downloads: 18700, IsTrending: true},
		[]Feature{FeaturePremium, FeatureUnlimitedResources}},
	{Entry{Name: "Netflix Premium", Description: "Premium subscription enabled, no account needed.", Version: "8.21.0", Category: CategoryEntertainment, Size: "95MB", FileName: "netflix_premium_mod.apk", Rating: 46, Downloads: 22000, IsFeatured: true},
		[]Feature{FeaturePremium, FeatureHDSupport}},
	{Entry{Name: "Instagram Pro", Description: "Download photos and videos, ad-free experience.", Version: "235.0.1", Category: CategorySocial, Size: "65MB", FileName: "instagram_pro_mod.apk", Rating: 40, Downloads: 13500},
		[]Feature{FeatureNoAds, FeatureSaveMedia}},
	{Entry{Name: "YouTube Vanced", Description: "Ad-free, background playback, and premium features unlocked.", Version: "17.33.42", Category: CategoryEntertainment, Size: "78MB", FileName: "youtube_vanced_mod.apk", Rating: 49, Downloads: 35000, IsFeatured: true},
		[]Feature{FeatureNoAds, FeatureBackgroundPlay}},
	{Entry{Name: "Mobile Legends", Description: "Map hack, unlimited diamonds, and all skins unlocked.", Version: "1.6.72", Category: CategoryGames, Size: "145MB", FileName: "mobile_legends_mod.apk", Rating: 42, Downloads: 12000},
		[]Feature{FeatureRadarHack, FeatureUnlimitedResources}},
}

// Seed adds the demo user and the sample catalog. It does nothing when the
// store already holds entries. Upload times are spread over the 72 hours
// before now.
func Seed(ctx context.Context, s Store, now time.Time) (int, error) {
	existing, err := s.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect store: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	owner, err := s.GetUserByUsername(ctx, DemoUsername)
	if errors.Is(err, ErrNotFound) {
		owner, err = s.CreateUser(ctx, DemoUsername, DemoPassword)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to seed demo user: %w", err)
	}

	for _, se := range sampleEntries {
		e := se.entry
		ownerID := owner.ID
		e.OwnerUserID = &ownerID
		icon := ""
		e.IconPath = &icon
		e.UploadedAt = now.Add(-time.Duration(rand.Intn(72)) * time.Hour)
		if _, err := s.Import(ctx, e, se.features); err != nil {
			return 0, fmt.Errorf("failed to seed %q: %w", e.Name, err)
		}
	}
	return len(sampleEntries), nil
}
