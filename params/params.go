// Package params normalizes the heterogeneous run parameter bag into
// typed, validated Maxwell-filter parameters.
//
// The raw document mixes native values (from local runs) with stringly
// values (from orchestrated runs): booleans arrive as booleans, vectors as
// either lists or "x, y, z" strings, absent values as the empty-string
// sentinel. Normalization resolves all of that exactly once; every later
// stage works with the typed Params value.
package params

// Raw parameter keys as they appear in the config document.
const (
	KeySTDuration       = "param_st_duration"
	KeySTCorrelation    = "param_st_correlation"
	KeyOrigin           = "param_origin"
	KeyIntOrder         = "param_int_order"
	KeyExtOrder         = "param_ext_order"
	KeyCoordFrame       = "param_coord_frame"
	KeyRegularize       = "param_regularize"
	KeyIgnoreRef        = "param_ignore_ref"
	KeyBadCondition     = "param_bad_condition"
	KeySTFixed          = "param_st_fixed"
	KeySTOnly           = "param_st_only"
	KeySkipByAnnotation = "param_skip_by_annotation"
	KeyMagScale         = "param_mag_scale"
	KeyExtendedProj     = "param_extended_proj"
	KeyDestination      = "param_destination"
)

// bookkeepingKeys are identifiers injected by the orchestration
// environment. They are unrelated to processing parameters and are
// dropped during normalization.
var bookkeepingKeys = []string{"_app", "_tid", "_inputs", "_outputs"}

// Vector3 is a fixed-arity spatial vector (meters, device or head frame).
type Vector3 [3]float64

// AutoScalar is a parameter documented as "number or the literal auto".
type AutoScalar struct {
	Auto  bool    `msgpack:"auto" json:"auto"`
	Value float64 `msgpack:"value" json:"value"`
}

// OriginSpec is the multipolar-moment-space origin: the literal "auto"
// (fit from head digitization) or an explicit 3-component coordinate.
type OriginSpec struct {
	Auto   bool    `msgpack:"auto" json:"auto"`
	Coords Vector3 `msgpack:"coords" json:"coords"`
}

// Params is the normalized, immutable Maxwell-filter parameter set.
// Produced once per run and passed by reference to each stage.
type Params struct {
	// STDuration is the spatiotemporal buffer duration in seconds.
	// Nil disables tSSS (plain spatial SSS only).
	STDuration *float64 `msgpack:"st_duration,omitempty" json:"st_duration,omitempty"`
	// STCorrelation is the inner/outer subspace correlation limit for tSSS.
	STCorrelation float64 `msgpack:"st_correlation" json:"st_correlation"`
	// Origin of the internal and external multipolar moment space.
	Origin OriginSpec `msgpack:"origin" json:"origin"`
	// IntOrder is the order of the internal spherical expansion component.
	IntOrder int `msgpack:"int_order" json:"int_order"`
	// ExtOrder is the order of the external spherical expansion component.
	ExtOrder int `msgpack:"ext_order" json:"ext_order"`
	// CoordFrame is the frame the origin is specified in: "head" or "meg".
	CoordFrame string `msgpack:"coord_frame" json:"coord_frame"`
	// Regularize is the basis regularization type: "in" or nil (none).
	Regularize *string `msgpack:"regularize,omitempty" json:"regularize,omitempty"`
	// IgnoreRef excludes reference channels from compensation.
	IgnoreRef bool `msgpack:"ignore_ref" json:"ignore_ref"`
	// BadCondition selects handling of ill-conditioned basis matrices:
	// "error", "warning", "info", or "ignore".
	BadCondition string `msgpack:"bad_condition" json:"bad_condition"`
	// STFixed applies tSSS using the median head position per window.
	STFixed bool `msgpack:"st_fixed" json:"st_fixed"`
	// STOnly restricts the output to the temporal projection.
	STOnly bool `msgpack:"st_only" json:"st_only"`
	// SkipByAnnotation lists annotation prefixes excluded from filtering.
	SkipByAnnotation []string `msgpack:"skip_by_annotation" json:"skip_by_annotation"`
	// MagScale brings magnetometers to the gradiometer magnitude order.
	MagScale AutoScalar `msgpack:"mag_scale" json:"mag_scale"`
	// ExtendedProj lists empty-room projection vectors extending the
	// external basis (eSSS).
	ExtendedProj []string `msgpack:"extended_proj" json:"extended_proj"`
	// Destination is the coordinate-parameter alternative to a destination
	// file: a translation target with no rotation. Nil means none supplied.
	Destination *Vector3 `msgpack:"destination,omitempty" json:"destination,omitempty"`
}

// defaults returns a Params populated with the documented defaults of the
// underlying filter routine. Keys absent from the document keep these.
func defaults() *Params {
	regularize := "in"
	return &Params{
		STCorrelation:    0.98,
		Origin:           OriginSpec{Auto: true},
		IntOrder:         8,
		ExtOrder:         3,
		CoordFrame:       "head",
		Regularize:       &regularize,
		BadCondition:     "error",
		STFixed:          true,
		SkipByAnnotation: []string{"edge", "bad_acq_skip"},
		MagScale:         AutoScalar{Value: 100},
		ExtendedProj:     []string{},
	}
}

// Bag renders the normalized parameters back into raw-document shape with
// native typed values. Normalizing a Bag() output reproduces the same
// Params, which is what makes normalization idempotent; it is also the
// payload handed to the external transform.
func (p *Params) Bag() map[string]any {
	bag := map[string]any{
		KeySTCorrelation:    p.STCorrelation,
		KeyIntOrder:         p.IntOrder,
		KeyExtOrder:         p.ExtOrder,
		KeyCoordFrame:       p.CoordFrame,
		KeyIgnoreRef:        p.IgnoreRef,
		KeyBadCondition:     p.BadCondition,
		KeySTFixed:          p.STFixed,
		KeySTOnly:           p.STOnly,
		KeySkipByAnnotation: p.SkipByAnnotation,
		KeyExtendedProj:     p.ExtendedProj,
	}

	if p.STDuration != nil {
		bag[KeySTDuration] = *p.STDuration
	}
	if p.Origin.Auto {
		bag[KeyOrigin] = "auto"
	} else {
		bag[KeyOrigin] = p.Origin.Coords.floats()
	}
	// Disabled regularization must stay an explicit null: the default is
	// "in", so omitting the key would re-enable it on the next pass.
	if p.Regularize != nil {
		bag[KeyRegularize] = *p.Regularize
	} else {
		bag[KeyRegularize] = nil
	}
	if p.MagScale.Auto {
		bag[KeyMagScale] = "auto"
	} else {
		bag[KeyMagScale] = p.MagScale.Value
	}
	if p.Destination != nil {
		bag[KeyDestination] = p.Destination.floats()
	}

	return bag
}

func (v Vector3) floats() []float64 {
	return []float64{v[0], v[1], v[2]}
}
