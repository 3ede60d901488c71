package models

// ThirdPartyUser — каноническая идентичность, полученная от внешнего провайдера.
//
// Это единственная форма, с которой работают остальные слои: нормализаторы
// провайдеров обязаны заполнить все поля (пустые значения вместо отсутствующих),
// поэтому дальше по стеку никто не проверяет «а пришло ли поле вообще».
// Type заполнен всегда.
type ThirdPartyUser struct {
	// ID — идентификатор пользователя в рамках провайдера.
	ID string
	// Name — отображаемое имя.
	Name string
	// Email — e-mail, каким его отдал провайдер (может быть пустым).
	Email string
	// ImageURL — URL аватара.
	ImageURL string
	// IsEmailVerified — подтверждён ли e-mail на стороне провайдера.
	IsEmailVerified bool
	// Type — провайдер, выдавший идентичность.
	Type UserType
}
