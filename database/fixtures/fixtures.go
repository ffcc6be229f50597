// Package fixtures holds the static seed data served when DATA_SOURCE=fixture.
// Every call returns fresh values so callers may mutate them.
package fixtures

import (
	"context"
	"fmt"
	"time"

	categoryRepo "doemais/database/repository/category"
	donationRepo "doemais/database/repository/donation"
	institutionRepo "doemais/database/repository/institution"
	ratingRepo "doemais/database/repository/rating"
	userRepo "doemais/database/repository/user"
	"doemais/models"

	"golang.org/x/crypto/bcrypt"
)

// Password is the sign-in password of every seeded account.
const Password = "doemais123"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func Categories() []models.Category {
	sub := func(cat string, names ...string) []models.Subcategory {
		out := make([]models.Subcategory, len(names))
		for i, n := range names {
			out[i] = models.Subcategory{ID: fmt.Sprintf("%s-%d", cat, i+1), Name: n, CategoryID: cat}
		}
		return out
	}
	return []models.Category{
		{ID: "1", Name: "Roupas", Icon: "shirt", Subcategories: sub("1", "Roupas Infantis", "Roupas Adultas", "Calçados", "Acessórios")},
		{ID: "2", Name: "Móveis", Icon: "armchair", Subcategories: sub("2", "Móveis de Quarto", "Móveis de Sala", "Móveis de Cozinha", "Eletrodomésticos")},
		{ID: "3", Name: "Alimentos", Icon: "apple", Subcategories: sub("3", "Alimentos Não Perecíveis", "Frutas e Verduras", "Produtos de Limpeza")},
		{ID: "4", Name: "Livros", Icon: "book", Subcategories: sub("4", "Livros Didáticos", "Literatura", "Livros Infantis")},
		{ID: "5", Name: "Brinquedos", Icon: "gamepad-2", Subcategories: sub("5", "Brinquedos Educativos", "Jogos", "Pelúcias")},
	}
}

// week builds a schedule from Monday-first open/close pairs; an empty pair is a closed day.
func week(pairs [7][2]string) []models.WorkingHours {
	out := make([]models.WorkingHours, 0, 7)
	for i, p := range pairs {
		day := (i + 1) % 7
		if p[0] == "" {
			out = append(out, models.WorkingHours{Day: day, Closed: true})
			continue
		}
		out = append(out, models.WorkingHours{Day: day, OpenTime: p[0], CloseTime: p[1]})
	}
	return out
}

func coord(lat, lng float64) *models.Coordinate {
	return &models.Coordinate{Lat: lat, Lng: lng}
}

func Institutions() []models.Institution {
	return []models.Institution{
		{
			ID: "1", UserID: "inst-user-1",
			Name:        "Casa da Esperança",
			Description: "ONG dedicada ao apoio de famílias em situação de vulnerabilidade social. Atendemos mais de 200 famílias mensalmente com doações de roupas, alimentos e móveis.",
			Email:       "contato@casadaesperanca.org", Phone: "(11) 99999-0001", CNPJ: "12.345.678/0001-90",
			Type:   models.InstitutionNGO,
			Avatar: "https://images.pexels.com/photos/6646918/pexels-photo-6646918.jpeg?auto=compress&cs=tinysrgb&w=400",
			Address: models.Address{
				Street: "Rua das Flores", Number: "123", Neighborhood: "Centro",
				City: "São Paulo", State: "SP", ZipCode: "01234-567",
			},
			Coordinates:        coord(-23.5505, -46.6333),
			AcceptedCategories: []string{"1", "2", "3"},
			WorkingHours: week([7][2]string{
				{"08:00", "17:00"}, {"08:00", "17:00"}, {"08:00", "17:00"}, {"08:00", "17:00"},
				{"08:00", "17:00"}, {"08:00", "12:00"}, {"", ""},
			}),
			Rating: 4.8, TotalRatings: 156,
			CreatedAt: date(2023, time.January, 15),
		},
		{
			ID: "2", UserID: "inst-user-2",
			Name:        "Igreja Comunidade Vida",
			Description: "Igreja evangélica que desenvolve projetos sociais na comunidade local. Recebemos doações para distribuir às famílias carentes do bairro.",
			Email:       "social@igrejacomunidadevida.com", Phone: "(11) 99999-0002", CNPJ: "23.456.789/0001-01",
			Type:   models.InstitutionChurch,
			Avatar: "https://images.pexels.com/photos/208315/pexels-photo-208315.jpeg?auto=compress&cs=tinysrgb&w=400",
			Address: models.Address{
				Street: "Avenida da Paz", Number: "456", Neighborhood: "Vila Nova",
				City: "São Paulo", State: "SP", ZipCode: "02345-678",
			},
			Coordinates:        coord(-23.5525, -46.6420),
			AcceptedCategories: []string{"1", "3", "4", "5"},
			WorkingHours: week([7][2]string{
				{"09:00", "18:00"}, {"09:00", "18:00"}, {"09:00", "21:00"}, {"09:00", "18:00"},
				{"09:00", "18:00"}, {"09:00", "16:00"}, {"08:00", "12:00"},
			}),
			Rating: 4.6, TotalRatings: 89,
			CreatedAt: date(2023, time.March, 20),
		},
		{
			ID: "3", UserID: "inst-user-3",
			Name:        "Projeto Crescer Juntos",
			Description: "Projeto social focado no desenvolvimento infantil através da educação e cultura. Precisamos de livros, brinquedos educativos e material escolar.",
			Email:       "contato@crescerjuntos.org", Phone: "(11) 99999-0003", CNPJ: "34.567.890/0001-12",
			Type:   models.InstitutionSocialProject,
			Avatar: "https://images.pexels.com/photos/8363026/pexels-photo-8363026.jpeg?auto=compress&cs=tinysrgb&w=400",
			Address: models.Address{
				Street: "Rua da Educação", Number: "789", Neighborhood: "Jardim das Crianças",
				City: "São Paulo", State: "SP", ZipCode: "03456-789",
			},
			Coordinates:        coord(-23.5485, -46.6380),
			AcceptedCategories: []string{"4", "5"},
			WorkingHours: week([7][2]string{
				{"07:00", "19:00"}, {"07:00", "19:00"}, {"07:00", "19:00"}, {"07:00", "19:00"},
				{"07:00", "19:00"}, {"", ""}, {"", ""},
			}),
			Rating: 4.9, TotalRatings: 234,
			CreatedAt: date(2023, time.February, 10),
		},
		{
			ID: "4", UserID: "inst-user-4",
			Name:        "Lar dos Idosos São Francisco",
			Description: "Casa de repouso para idosos que necessitam de cuidados especiais. Aceitamos doações de roupas, móveis e produtos de higiene.",
			Email:       "doacao@larsaofrancisco.org", Phone: "(11) 99999-0004", CNPJ: "45.678.901/0001-23",
			Type:   models.InstitutionNGO,
			Avatar: "https://images.pexels.com/photos/7551613/pexels-photo-7551613.jpeg?auto=compress&cs=tinysrgb&w=400",
			Address: models.Address{
				Street: "Rua do Carinho", Number: "321", Neighborhood: "Vila dos Idosos",
				City: "São Paulo", State: "SP", ZipCode: "04567-890",
			},
			Coordinates:        coord(-23.5560, -46.6290),
			AcceptedCategories: []string{"1", "2", "3"},
			WorkingHours: week([7][2]string{
				{"08:00", "16:00"}, {"08:00", "16:00"}, {"08:00", "16:00"}, {"08:00", "16:00"},
				{"08:00", "16:00"}, {"09:00", "14:00"}, {"", ""},
			}),
			Rating: 4.7, TotalRatings: 112,
			CreatedAt: date(2023, time.April, 5),
		},
	}
}

func Donations() []models.Donation {
	delivered := func(d time.Time) *time.Time { return &d }
	return []models.Donation{
		{
			ID: "donation1", DonorID: "donor1", InstitutionID: "1",
			Title:       "Roupas de inverno infantis",
			Description: "Casacos, calças e sapatos em ótimo estado, tamanhos 4 a 8 anos",
			Category:    "1", Subcategory: "1-1", Condition: models.ConditionSemiNew,
			Images:        []string{"https://images.pexels.com/photos/298863/pexels-photo-298863.jpeg?auto=compress&cs=tinysrgb&w=400"},
			Status:        models.StatusDelivered,
			ScheduledDate: delivered(date(2024, time.January, 8)),
			DeliveredDate: delivered(date(2024, time.January, 8)),
			CreatedAt:     date(2024, time.January, 5),
		},
		{
			ID: "donation2", DonorID: "donor2", InstitutionID: "1",
			Title: "Cestas básicas", Description: "Arroz, feijão e óleo para quatro famílias",
			Category: "3", Subcategory: "3-1", Condition: models.ConditionNew,
			Status:        models.StatusDelivered,
			ScheduledDate: delivered(date(2024, time.January, 6)),
			DeliveredDate: delivered(date(2024, time.January, 6)),
			CreatedAt:     date(2024, time.January, 3),
		},
		{
			ID: "donation3", DonorID: "donor3", InstitutionID: "2",
			Title: "Jaquetas e cobertores", Description: "Peças adultas lavadas e dobradas",
			Category: "1", Subcategory: "1-2", Condition: models.ConditionUsed,
			Status:        models.StatusDelivered,
			ScheduledDate: delivered(date(2024, time.January, 4)),
			DeliveredDate: delivered(date(2024, time.January, 4)),
			CreatedAt:     date(2024, time.January, 2),
		},
		{
			ID: "donation4", DonorID: "donor1", InstitutionID: "2",
			Title:       "Livros didáticos ensino fundamental",
			Description: "Coleção completa de livros do 5º ano em perfeito estado",
			Category:    "4", Subcategory: "4-1", Condition: models.ConditionNew,
			Images:        []string{"https://images.pexels.com/photos/159711/books-bookstore-book-reading-159711.jpeg?auto=compress&cs=tinysrgb&w=400"},
			Status:        models.StatusScheduled,
			ScheduledDate: delivered(date(2024, time.January, 15)),
			CreatedAt:     date(2024, time.January, 12),
		},
		{
			ID: "donation5", DonorID: "donor1",
			Title: "Quebra-cabeças", Description: "Três jogos completos",
			Category: "5", Subcategory: "5-2", Condition: models.ConditionUsed,
			Status:    models.StatusPending,
			CreatedAt: date(2024, time.February, 1),
		},
	}
}

func Ratings() []models.Rating {
	responded := func(t time.Time) *time.Time { return &t }
	return []models.Rating{
		{
			ID: "1", DonorID: "donor1", InstitutionID: "1", DonationID: "donation1", Score: 5,
			Comment:     "Experiência maravilhosa! A equipe foi muito receptiva e organizou tudo de forma perfeita. Recomendo muito!",
			Response:    "Muito obrigado pelo carinho! É sempre um prazer receber pessoas como você.",
			RespondedAt: responded(date(2024, time.January, 11)),
			CreatedAt:   date(2024, time.January, 10),
		},
		{
			ID: "2", DonorID: "donor2", InstitutionID: "1", DonationID: "donation2", Score: 4,
			Comment:   "Ótimo atendimento, mas o processo de agendamento poderia ser mais ágil.",
			CreatedAt: date(2024, time.January, 8),
		},
		{
			ID: "3", DonorID: "donor3", InstitutionID: "2", DonationID: "donation3", Score: 5,
			Comment:     "Local muito bem organizado e pessoas dedicadas. Voltarei a doar em breve!",
			Response:    "Que Deus abençoe sua generosidade! Estaremos sempre de portas abertas.",
			RespondedAt: responded(date(2024, time.January, 6)),
			CreatedAt:   date(2024, time.January, 5),
		},
	}
}

// Users returns donor and institution accounts whose password is Password.
func Users() ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash fixture password: %w", err)
	}
	home := models.Address{
		Street: "Rua das Palmeiras", Number: "100", Neighborhood: "Jardim Paulista",
		City: "São Paulo", State: "SP", ZipCode: "01234-000",
		Coordinates: coord(-23.5670, -46.6560),
	}
	users := []models.User{
		{ID: "donor1", Name: "Maria Silva", Email: "maria.silva@email.com", Phone: "(11) 99999-1234", Type: models.UserDonor, CPF: "123.456.789-00", Address: home, CreatedAt: date(2023, time.December, 1)},
		{ID: "donor2", Name: "João Souza", Email: "joao.souza@email.com", Phone: "(11) 99999-2345", Type: models.UserDonor, CPF: "234.567.890-11", Address: home, CreatedAt: date(2023, time.December, 3)},
		{ID: "donor3", Name: "Ana Lima", Email: "ana.lima@email.com", Phone: "(11) 99999-3456", Type: models.UserDonor, CPF: "345.678.901-22", Address: home, CreatedAt: date(2023, time.December, 5)},
	}
	for _, inst := range Institutions() {
		users = append(users, models.User{
			ID: inst.UserID, Name: inst.Name, Email: inst.Email, Phone: inst.Phone,
			Type: models.UserInstitution, CNPJ: inst.CNPJ, Address: inst.Address, CreatedAt: inst.CreatedAt,
		})
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
	}
	return users, nil
}

// Repositories bundles in-memory repositories loaded with the seed data.
type Repositories struct {
	Institutions *institutionRepo.MemoryInstitutionRepo
	Categories   *categoryRepo.MemoryCategoryRepo
	Donations    *donationRepo.MemoryDonationRepo
	Ratings      *ratingRepo.MemoryRatingRepo
	Users        *userRepo.MemoryUserRepo
}

func NewRepositories() (*Repositories, error) {
	users, err := Users()
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Institutions: institutionRepo.NewMemoryInstitutionRepo(Institutions()...),
		Categories:   categoryRepo.NewMemoryCategoryRepo(Categories()...),
		Donations:    donationRepo.NewMemoryDonationRepo(Donations()...),
		Ratings:      ratingRepo.NewMemoryRatingRepo(Ratings()...),
		Users:        userRepo.NewMemoryUserRepo(users...),
	}, nil
}

// SeedMongo writes the seed data through the given repositories, skipping
// records that already exist.
func SeedMongo(ctx context.Context,
	inst institutionRepo.InstitutionRepository,
	cats categoryRepo.CategoryRepository,
	users userRepo.UserRepository,
) error {
	for _, c := range Categories() {
		c := c
		if _, err := cats.GetByID(ctx, c.ID); err == nil {
			continue
		}
		if err := cats.Create(ctx, &c); err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	accounts, err := Users()
	if err != nil {
		return err
	}
	for _, u := range accounts {
		u := u
		if _, err := users.GetByID(ctx, u.ID); err == nil {
			continue
		}
		if err := users.Create(ctx, &u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, i := range Institutions() {
		i := i
		if _, err := inst.GetByID(ctx, i.ID); err == nil {
			continue
		}
		if err := inst.Create(ctx, &i); err != nil {
			return fmt.Errorf("seed institution %s: %w", i.ID, err)
		}
	}
	return nil
}
