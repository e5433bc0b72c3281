package store

import "inos/internal/models/state_models"

func cloneState(st state_models.AppState) state_models.AppState {
	return state_models.AppState{
		User:              cloneUser(st.User),
		OnboardingStep:    st.OnboardingStep,
		Analyses:          cloneAnalyses(st.Analyses),
		FullFaceAnalyses:  cloneFullFaces(st.FullFaceAnalyses),
		Subscription:      cloneSubscription(st.Subscription),
		Orders:            cloneOrders(st.Orders),
		Cart:              append([]state_models.CartItem{}, st.Cart...),
		HasSeenOnboarding: st.HasSeenOnboarding,
		HasSeenIntro:      st.HasSeenIntro,
	}
}

func cloneUser(u *state_models.UserProfile) *state_models.UserProfile {
	if u == nil {
		return nil
	}
	out := *u
	out.Concerns = cloneStrings(u.Concerns)
	out.QuizAnswers = cloneMap(u.QuizAnswers)
	return &out
}

func cloneAnalysis(a state_models.SkinAnalysis) state_models.SkinAnalysis {
	a.Recommendations = cloneStrings(a.Recommendations)
	return a
}

func cloneAnalyses(list []state_models.SkinAnalysis) []state_models.SkinAnalysis {
	out := make([]state_models.SkinAnalysis, len(list))
	for i, a := range list {
		out[i] = cloneAnalysis(a)
	}
	return out
}

func cloneFullFace(f state_models.FullFaceAnalysis) state_models.FullFaceAnalysis {
	f.Recommendations = cloneStrings(f.Recommendations)
	f.PriorityAreas = cloneStrings(f.PriorityAreas)
	for _, m := range f.Metrics() {
		m.Zones = cloneZones(m.Zones)
	}
	return f
}

func cloneZones(z state_models.FaceZoneScores) state_models.FaceZoneScores {
	cp := func(s *state_models.ZoneScore) *state_models.ZoneScore {
		if s == nil {
			return nil
		}
		v := *s
		return &v
	}
	return state_models.FaceZoneScores{
		Forehead:     cp(z.Forehead),
		LeftCheek:    cp(z.LeftCheek),
		RightCheek:   cp(z.RightCheek),
		Nose:         cp(z.Nose),
		Chin:         cp(z.Chin),
		LeftEyeArea:  cp(z.LeftEyeArea),
		RightEyeArea: cp(z.RightEyeArea),
	}
}

func cloneFullFaces(list []state_models.FullFaceAnalysis) []state_models.FullFaceAnalysis {
	out := make([]state_models.FullFaceAnalysis, len(list))
	for i, f := range list {
		out[i] = cloneFullFace(f)
	}
	return out
}

func cloneSubscription(s state_models.Subscription) state_models.Subscription {
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		s.ExpiresAt = &t
	}
	return s
}

func cloneOrder(o state_models.Order) state_models.Order {
	o.Items = append([]state_models.OrderItem{}, o.Items...)
	return o
}

func cloneOrders(list []state_models.Order) []state_models.Order {
	out := make([]state_models.Order, len(list))
	for i, o := range list {
		out[i] = cloneOrder(o)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
