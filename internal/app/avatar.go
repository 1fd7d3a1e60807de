package app

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"review_proxy/internal/domain"
)

const (
	avatarBaseURL  = "https://api.dicebear.com/9.x/avataaars/svg"
	defaultGender  = "male"
	genderFetchers = 8
)

var (
	femaleTops = []string{
		"bigHair", "bob", "bun", "curly", "curvy", "frida",
		"longButNotTooLong", "miaWallace", "straight01", "straight02", "straightAndStrand",
	}
	maleTops = []string{
		"dreads01", "frizzle", "shaggy", "shortCurly", "shortFlat",
		"shortRound", "shortWaved", "sides", "theCaesar", "theCaesarAndSidePart",
	}
	skinColors       = []string{"614335", "ae5d29", "d08b5b", "edb98a", "f8d25c", "fd9841", "ffdbb4"}
	backgroundColors = []string{"b6e3f4", "c0aede", "d1d4f9", "ffd5dc", "ffdfbf"}
)

type emotion struct{ mouth, eyes, eyebrows string }

var emotions = map[int]emotion{
	1: {"sad", "cry", "angryNatural"},
	2: {"concerned", "squint", "sadConcernedNatural"},
	3: {"serious", "default", "defaultNatural"},
	4: {"smile", "default", "raisedExcitedNatural"},
	5: {"smile", "happy", "raisedExcited"},
}

// AvatarBuilder derives DiceBear avatars. Gender lookups are cached for the
// life of the process and never retried for a name already seen.
type AvatarBuilder struct {
	guesser domain.GenderGuesser
	cache   domain.GenderCache
	sf      singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAvatarBuilder: guesser may be nil, in which case every name maps to the default.
func NewAvatarBuilder(g domain.GenderGuesser, c domain.GenderCache, rnd *rand.Rand) *AvatarBuilder {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &AvatarBuilder{guesser: g, cache: c, rnd: rnd}
}

// Gender returns the cached gender for name, inferring it at most once.
func (b *AvatarBuilder) Gender(ctx context.Context, name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return defaultGender
	}
	if g, ok := b.cache.Get(name); ok {
		return g
	}
	v, _, _ := b.sf.Do(name, func() (any, error) {
		if g, ok := b.cache.Get(name); ok {
			return g, nil
		}
		g := defaultGender
		if b.guesser != nil {
			guessed, err := b.guesser.GuessGender(ctx, name)
			switch {
			case err != nil:
				log.Debug().Err(err).Str("name", name).Msg("gender inference failed; using default")
			case guessed == "female" || guessed == "male":
				g = guessed
			}
		}
		b.cache.Set(name, g)
		g, _ = b.cache.Get(name)
		return g, nil
	})
	return v.(string)
}

// Prefetch resolves genders for names concurrently so Build never waits on the network.
func (b *AvatarBuilder) Prefetch(ctx context.Context, names []string) {
	var eg errgroup.Group
	eg.SetLimit(genderFetchers)
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup || n == "" {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := b.cache.Get(n); ok {
			continue
		}
		eg.Go(func() error {
			b.Gender(ctx, n)
			return nil
		})
	}
	_ = eg.Wait()
}

// Build composes the avatar for one review. seed is the review id.
func (b *AvatarBuilder) Build(ctx context.Context, seed, author string, rating int) domain.Avatar {
	gender := b.Gender(ctx, firstName(author))

	tops := maleTops
	facialHair := 50
	if gender == "female" {
		tops = femaleTops
		facialHair = 0
	}

	b.mu.Lock()
	top := tops[b.rnd.IntN(len(tops))]
	skin := skinColors[b.rnd.IntN(len(skinColors))]
	bg := backgroundColors[b.rnd.IntN(len(backgroundColors))]
	b.mu.Unlock()

	em, ok := emotions[rating]
	if !ok {
		em = emotions[5]
	}

	a := domain.Avatar{
		Gender:                gender,
		Top:                   top,
		FacialHairProbability: facialHair,
		SkinColor:             skin,
		BackgroundColor:       bg,
		Mouth:                 em.mouth,
		Eyes:                  em.eyes,
		Eyebrows:              em.eyebrows,
		Seed:                  seed,
	}
	a.URL = avatarURL(a)
	return a
}

// avatarURL keeps a fixed parameter order so equal descriptors give equal URLs.
func avatarURL(a domain.Avatar) string {
	q := []struct{ k, v string }{
		{"seed", a.Seed},
		{"top", a.Top},
		{"facialHairProbability", strconv.Itoa(a.FacialHairProbability)},
		{"skinColor", a.SkinColor},
		{"backgroundColor", a.BackgroundColor},
		{"mouth", a.Mouth},
		{"eyes", a.Eyes},
		{"eyebrows", a.Eyebrows},
	}
	buf := make([]byte, 0, 256)
	buf = append(buf, avatarBaseURL...)
	for i, p := range q {
		if i == 0 {
			buf = append(buf, '?')
		} else {
			buf = append(buf, '&')
		}
		buf = append(buf, p.k...)
		buf = append(buf, '=')
		buf = append(buf, url.QueryEscape(p.v)...)
	}
	return string(buf)
}
