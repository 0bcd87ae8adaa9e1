package skeleton

import "essaim.dev/kinectskel/joints"

// Bone is a segment drawn between two adjacent joints.
type Bone struct {
	From string
	To   string
}

var (
	torsoBones = []Bone{
		{joints.Head, joints.Neck},
		{joints.Neck, joints.SpineShoulder},
		{joints.SpineShoulder, joints.SpineMid},
		{joints.SpineMid, joints.SpineBase},
		{joints.SpineShoulder, joints.ShoulderRight},
		{joints.SpineShoulder, joints.ShoulderLeft},
		{joints.SpineBase, joints.HipRight},
		{joints.SpineBase, joints.HipLeft},
	}

	armBones = []Bone{
		{joints.ShoulderLeft, joints.ElbowLeft},
		{joints.ElbowLeft, joints.WristLeft},
		{joints.WristLeft, joints.HandLeft},

		{joints.ShoulderRight, joints.ElbowRight},
		{joints.ElbowRight, joints.WristRight},
		{joints.WristRight, joints.HandRight},
	}

	legBones = []Bone{
		{joints.HipLeft, joints.KneeLeft},
		{joints.KneeLeft, joints.AnkleLeft},
		{joints.AnkleLeft, joints.FootLeft},

		{joints.HipRight, joints.KneeRight},
		{joints.KneeRight, joints.AnkleRight},
		{joints.AnkleRight, joints.FootRight},
	}
)

// UpperBodyBones returns the bones drawn for every skeleton.
func UpperBodyBones() []Bone {
	bones := make([]Bone, 0, len(torsoBones)+len(armBones))
	bones = append(bones, torsoBones...)
	return append(bones, armBones...)
}

// LowerBodyBones returns the leg bones, drawn only for full-body rendering.
func LowerBodyBones() []Bone {
	return append([]Bone(nil), legBones...)
}

type resolvedBone struct {
	Bone
	from, to int
}

func resolve(m joints.Map, bones []Bone) ([]resolvedBone, error) {
	out := make([]resolvedBone, 0, len(bones))
	for _, b := range bones {
		from, err := m.Index(b.From)
		if err != nil {
			return nil, err
		}
		to, err := m.Index(b.To)
		if err != nil {
			return nil, err
		}
		out = append(out, resolvedBone{Bone: b, from: from, to: to})
	}
	return out, nil
}
