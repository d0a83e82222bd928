package sim

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/integrators"
)

// unitSpecies has q/m = 1 so the field strength equals eJ directly.
func unitSpecies(count int) dynamo.Species {
	return dynamo.Species{Tag: "unit", Count: count, Mass: 1, Charge: 1, Speed: 1}
}

func idealDevice(drive field.Drive) *field.Device {
	dev, err := field.NewDevice(drive, []field.ZoneSpec{{Kind: field.KindIdeal, Span: 1e9}})
	Expect(err).NotTo(HaveOccurred())
	return dev
}

func place(ens *dynamo.Ensemble, n int, pos, vel [3]float64) {
	for a := 0; a < 3; a++ {
		ens.Pos[a][n] = pos[a]
		ens.Vel[a][n] = vel[a]
	}
}

func rk4() dynamo.Integrator { return integrators.NewRK4() }

var _ = Describe("Driver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with a Mathieu-stable RF drive", func() {
		// q = 2eV/(r0^2 w^2) = 0.4 with e = r0 = f = 1
		drive := field.Drive{RF: 0.4 * 4 * math.Pi * math.Pi / 2, DC: 0, Frequency: 1, Radius: 1}

		It("keeps the particle inside the electrodes in zone 1", func() {
			dev := idealDevice(drive)
			ens := dynamo.NewEnsemble(unitSpecies(1), dev.Zones())
			place(ens, 0, [3]float64{0.1, -0.1, 0}, [3]float64{0.05, 0, 1})

			res, err := New(dev, rk4).RunEnsemble(ctx, ens, Config{Steps: 3000})
			Expect(err).NotTo(HaveOccurred())

			for t := 0; t < res.History.Steps(); t++ {
				s := res.History.At(t, 0)
				Expect(s.Membership).To(Equal(1), "step %d", t)
				Expect(math.Abs(s.Pos[dynamo.X])).To(BeNumerically("<=", drive.Radius))
				Expect(math.Abs(s.Pos[dynamo.Y])).To(BeNumerically("<=", drive.Radius))
			}
			Expect(res.EventStep).To(Equal([]int{-1}))
			Expect(res.Alive).To(Equal(1))
			Expect(res.Time).To(HaveLen(3000))
			Expect(res.Time[2999]).To(BeNumerically("~", 29.99, 1e-9))
		})
	})

	Context("with a defocusing DC drive", func() {
		// y'' = y, so y(t) = 0.1 cosh(t) crosses r0 = 1 between t = 2.99 and 3.00
		drive := field.Drive{RF: 0, DC: 1, Frequency: 1, Radius: 1}

		var res *Result

		BeforeEach(func() {
			dev := idealDevice(drive)
			ens := dynamo.NewEnsemble(unitSpecies(1), dev.Zones())
			place(ens, 0, [3]float64{0, 0.1, 0}, [3]float64{0, 0, 1})

			var err error
			res, err = New(dev, rk4).RunEnsemble(ctx, ens, Config{Steps: 400})
			Expect(err).NotTo(HaveOccurred())
		})

		It("marks the particle lost at the crossing step", func() {
			Expect(res.EventStep[0]).To(Equal(300))
			Expect(res.History.At(299, 0).Membership).To(Equal(1))
			Expect(res.History.At(300, 0).Membership).To(Equal(dynamo.Lost))
			Expect(res.Lost).To(Equal(1))
			Expect(res.Survivors()).To(BeEmpty())
		})

		It("freezes the particle from that step onward", func() {
			frozen := res.History.At(300, 0)
			Expect(frozen.Pos[dynamo.Y]).To(BeNumerically(">", drive.Radius))
			for t := 300; t < res.History.Steps(); t++ {
				s := res.History.At(t, 0)
				Expect(s.Membership).To(Equal(dynamo.Lost))
				Expect(s.Vel).To(Equal([3]float64{}))
				Expect(s.Pos).To(Equal(frozen.Pos))
			}
		})
	})

	Context("with a field-free short device", func() {
		It("detects a drifting particle when it passes the last boundary", func() {
			dev, err := field.NewDevice(field.Drive{Frequency: 1, Radius: 1}, []field.ZoneSpec{
				{Kind: field.KindIdeal, Span: 0.5},
				{Kind: field.KindLinearExit, Span: 0.5},
			})
			Expect(err).NotTo(HaveOccurred())

			ens := dynamo.NewEnsemble(unitSpecies(2), dev.Zones())
			place(ens, 0, [3]float64{0, 0, 0}, [3]float64{0, 0, 1})
			place(ens, 1, [3]float64{0, 0, 0}, [3]float64{0, 0, 0.5})

			euler := func() dynamo.Integrator { return integrators.NewEuler() }
			res, err := New(dev, euler).RunEnsemble(ctx, ens, Config{StepsPerPeriod: 64, Steps: 100})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.EventStep).To(Equal([]int{64, -1}))
			Expect(res.History.At(31, 0).Membership).To(Equal(1))
			Expect(res.History.At(32, 0).Membership).To(Equal(2))
			Expect(res.History.At(64, 0).Membership).To(Equal(3))
			Expect(res.History.At(64, 1).Membership).To(Equal(2))
			Expect(res.Detected).To(Equal(1))
			Expect(res.Alive).To(Equal(1))
			Expect(res.Transmission()).To(BeNumerically("~", 0.5))
			Expect(res.Survivors()).To(Equal([]int{0, 1}))
		})
	})
})
